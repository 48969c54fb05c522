package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuri/excelize/v2"

	"halya/internal/services"
	"halya/internal/storage"
	"halya/internal/store/memory"
	"halya/internal/workbook"
)

const (
	residentsCSV = "resident_id,alley,house_number,resident_name,sheet_name\n" +
		"A002,A,2,Siti,Fee Halya 1\n" +
		"A001,A,1,Ali,Fee Halya 1\n" +
		"B010,B,10,Chong,Sticker\n"
	paymentsCSV = "id,resident_id,payment_date,description,amount,year,sheet_name\n" +
		"1,A001,,Annual Fee 2023,30.00,2023,Fee Halya 1\n" +
		"2,A001,,Annual Fee 2024,50.00,2024,Fee Halya 1\n" +
		"3,B010,,Guard Fee - April 2025,40,2025,Sticker\n"
)

// seedEnv points the memory backend at a fresh seed directory.
func seedEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, memory.ResidentsFile), []byte(residentsCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, memory.PaymentsFile), []byte(paymentsCSV), 0o644))

	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("SEED_DIR", dir)
	t.Setenv("AMQP_URL", "")
	t.Setenv("CATEGORY_RULES_FILE", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAlleysCommand(t *testing.T) {
	seedEnv(t)

	out, err := run(t, "alleys")

	require.NoError(t, err)
	assert.Equal(t, "A\nB\n", out)
}

func TestResidentsCommand(t *testing.T) {
	seedEnv(t)

	out, err := run(t, "residents", "--alley", "A")

	require.NoError(t, err)
	assert.Contains(t, out, "A001")
	assert.Contains(t, out, "Siti")
	assert.NotContains(t, out, "Chong")
	assert.Less(t, bytes.Index([]byte(out), []byte("Ali")), bytes.Index([]byte(out), []byte("Siti")))
}

func TestResidentsCommandRequiresAlley(t *testing.T) {
	seedEnv(t)

	_, err := run(t, "residents")

	assert.ErrorContains(t, err, "--alley is required")
}

func TestResidentsCommandEmptyAlley(t *testing.T) {
	seedEnv(t)

	out, err := run(t, "residents", "--alley", "Z")

	require.NoError(t, err)
	assert.Contains(t, out, "No residents in alley Z")
}

func TestPaymentsCommand(t *testing.T) {
	seedEnv(t)

	out, err := run(t, "payments", "--resident", "A001")

	require.NoError(t, err)
	assert.Contains(t, out, "1 - Ali")
	assert.Contains(t, out, "Total Paid: RM 80.00")
	assert.Contains(t, out, "Total Payments: 2")
	assert.Contains(t, out, "Average Payment: RM 40.00")
	assert.Less(t, bytes.Index([]byte(out), []byte("2024")), bytes.Index([]byte(out), []byte("2023")))
}

func TestPaymentsCommandEmptyHistory(t *testing.T) {
	seedEnv(t)

	out, err := run(t, "payments", "--resident", "A002")

	require.NoError(t, err)
	assert.Contains(t, out, "No payments found for this resident")
}

func TestPaymentsCommandCSV(t *testing.T) {
	seedEnv(t)

	out, err := run(t, "payments", "--resident", "A001", "--csv")

	require.NoError(t, err)
	assert.Contains(t, out, "resident_id")
	assert.Contains(t, out, "Annual Fee 2024")
}

func TestPaymentsCommandUnknownResident(t *testing.T) {
	seedEnv(t)

	_, err := run(t, "payments", "--resident", "X999")

	assert.ErrorContains(t, err, "X999")
}

func TestInvoicesFromPayments(t *testing.T) {
	dir := seedEnv(t)
	outFile := filepath.Join(t.TempDir(), "invoices.csv")

	out, err := run(t, "invoices", "--payments", filepath.Join(dir, memory.PaymentsFile), "--out", outFile)

	require.NoError(t, err)
	assert.Contains(t, out, "Invoices: 3")
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INV-2023-000001")
	assert.Contains(t, string(data), string(services.StatusPaid))
}

func TestInvoicesFromTemplates(t *testing.T) {
	seedEnv(t)
	templates := filepath.Join(t.TempDir(), "templates.csv")
	require.NoError(t, os.WriteFile(templates, []byte("description,amount,year\nAnnual Fee 2026,50,2026\n"), 0o644))

	out, err := run(t, "invoices", "--templates", templates)

	require.NoError(t, err)
	assert.Contains(t, out, "invoice_number")
	assert.Equal(t, 4, bytes.Count([]byte(out), []byte("\n")), "header plus one invoice per resident")
	assert.Contains(t, out, string(services.StatusPending))
}

func TestInvoicesRequiresOneSource(t *testing.T) {
	seedEnv(t)

	_, err := run(t, "invoices")

	assert.ErrorContains(t, err, "exactly one of")
}

func TestWatchRequiresAMQP(t *testing.T) {
	seedEnv(t)

	_, err := run(t, "watch")

	assert.ErrorContains(t, err, "AMQP_URL")
}

func TestInvalidBackendFailsBeforeRunning(t *testing.T) {
	seedEnv(t)
	t.Setenv("DATA_BACKEND", "bogus")

	_, err := run(t, "alleys")

	assert.ErrorContains(t, err, "invalid data backend")
}

// offlineEnv leaves the default hosted backend selected with no
// credentials, as on a machine that only processes files.
func offlineEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATA_BACKEND", "SUPABASE_URL", "SUPABASE_KEY", "SEED_DIR", "AMQP_URL", "CATEGORY_RULES_FILE"} {
		t.Setenv(key, "")
	}
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", workbook.SheetFeeHalya))
	rows := [][]any{
		{"A", 1, "Ali", 2023, 100, 30},
		{"A", 2, "Siti"},
	}
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow(workbook.SheetFeeHalya, fmt.Sprintf("A%d", 7+i), &row))
	}
	path := filepath.Join(t.TempDir(), "collection.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestInvoicesRunWithoutStoreSettings(t *testing.T) {
	offlineEnv(t)
	payments := filepath.Join(t.TempDir(), memory.PaymentsFile)
	require.NoError(t, os.WriteFile(payments, []byte(paymentsCSV), 0o644))
	outFile := filepath.Join(t.TempDir(), "invoices.csv")

	out, err := run(t, "invoices", "--payments", payments, "--out", outFile)

	require.NoError(t, err)
	assert.Contains(t, out, "Invoices: 3")
	assert.FileExists(t, outFile)
}

func TestStoreCommandsStillRequireStoreSettings(t *testing.T) {
	offlineEnv(t)

	_, err := run(t, "alleys")

	assert.ErrorContains(t, err, "SUPABASE_URL is required")
}

func TestImportWritesSeedFiles(t *testing.T) {
	offlineEnv(t)
	book := writeWorkbook(t)
	outDir := t.TempDir()

	out, err := run(t, "import", "--workbook", book, "--out", outDir)

	require.NoError(t, err)
	assert.Contains(t, out, "Residents: 2 (1 with payments)")
	assert.Contains(t, out, "Payments: 2 totalling RM 130.00")
	assert.Contains(t, out, "Annual Fee 2023")

	st, err := memory.NewFromFiles(outDir)
	require.NoError(t, err)
	residents, payments := st.Counts()
	assert.Equal(t, 2, residents)
	assert.Equal(t, 2, payments)
}

func TestImportLoadsSQLiteMirror(t *testing.T) {
	offlineEnv(t)
	book := writeWorkbook(t)
	dbPath := filepath.Join(t.TempDir(), "mirror", "halya.db")

	_, err := run(t, "import", "--workbook", book, "--out", t.TempDir(), "--sqlite", dbPath)
	require.NoError(t, err)

	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()
	residents, err := repo.ResidentsByAlley(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, residents, 2)
	assert.Equal(t, "Ali", residents[0].ResidentName)
	payments, err := repo.PaymentsByResident(context.Background(), "A001")
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestImportRequiresWorkbook(t *testing.T) {
	offlineEnv(t)

	_, err := run(t, "import")

	assert.ErrorContains(t, err, "--workbook is required")
}
