package store

// Table and column names of the hosted schema.
const (
	TableResidents = "residents"
	TablePayments  = "payments"

	ColResidentID   = "resident_id"
	ColResidentName = "resident_name"
	ColAlley        = "alley"
	ColHouseNumber  = "house_number"
	ColSheetName    = "sheet_name"

	ColID          = "id"
	ColDescription = "description"
	ColAmount      = "amount"
	ColYear        = "year"
	ColPaymentDate = "payment_date"
)

// Filter is an equality condition.
type Filter struct {
	Column string
	Value  string
}

// Order is one sort key.
type Order struct {
	Column    string
	Desc      bool
	NullsLast bool
}

// Query describes a read against one table: a column projection (empty
// means all columns), equality filters and ordered sort keys. Backends
// translate it to their own dialect.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Orders  []Order
	Limit   int
}

var (
	residentColumns = []string{ColResidentID, ColResidentName, ColAlley, ColHouseNumber, ColSheetName}
	paymentColumns  = []string{ColID, ColResidentID, ColDescription, ColAmount, ColYear, ColPaymentDate, ColSheetName}
)

// ResidentColumns lists the resident projection in scan order.
func ResidentColumns() []string { return append([]string(nil), residentColumns...) }

// PaymentColumns lists the payment projection in scan order.
func PaymentColumns() []string { return append([]string(nil), paymentColumns...) }

// AlleysQuery selects the alley column of all residents ordered by alley.
func AlleysQuery() Query {
	return Query{
		Table:   TableResidents,
		Columns: []string{ColAlley},
		Orders:  []Order{{Column: ColAlley}},
	}
}

// ResidentsByAlleyQuery selects residents of alley ordered by house number.
func ResidentsByAlleyQuery(alley string) Query {
	return Query{
		Table:   TableResidents,
		Columns: ResidentColumns(),
		Filters: []Filter{{Column: ColAlley, Value: alley}},
		Orders:  []Order{{Column: ColHouseNumber}, {Column: ColResidentID}},
	}
}

// ResidentQuery selects one resident by id.
func ResidentQuery(residentID string) Query {
	return Query{
		Table:   TableResidents,
		Columns: ResidentColumns(),
		Filters: []Filter{{Column: ColResidentID, Value: residentID}},
		Limit:   1,
	}
}

// PaymentsByResidentQuery selects payments of a resident ordered by year
// descending (rows without a year last) then description ascending.
func PaymentsByResidentQuery(residentID string) Query {
	return Query{
		Table:   TablePayments,
		Columns: PaymentColumns(),
		Filters: []Filter{{Column: ColResidentID, Value: residentID}},
		Orders:  []Order{{Column: ColYear, Desc: true, NullsLast: true}, {Column: ColDescription}},
	}
}
