package model

type Department struct {
	ID          string  `db:"department_id" json:"department_id"`
	Name        string  `db:"name" json:"name"`
	Code        *string `db:"code" json:"code"`
	Description *string `db:"description" json:"description"`
}

type Doctor struct {
	ID             string  `db:"doctor_id" json:"doctor_id"`
	FullName       string  `db:"full_name" json:"full_name"`
	DepartmentName *string `db:"department_name" json:"department_name"`
	DepartmentID   *string `db:"department_id" json:"department_id"`
}

type Service struct {
	ID       string  `db:"service_id"`
	Name     string  `db:"name"`
	Price    float64 `db:"price"`
	IsActive bool    `db:"is_active"`
}

type PaymentMethod struct {
	ID   int    `db:"method_id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Lookup is an {id, name} row of a static lookup table.
type Lookup struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

const ConsultationServiceID = "consultation"

func Sexes() []Lookup {
	return []Lookup{{ID: 1, Name: "male"}, {ID: 2, Name: "female"}}
}

func GenderIdentities() []Lookup {
	return []Lookup{
		{ID: 1, Name: "male"},
		{ID: 2, Name: "female"},
		{ID: 3, Name: "non-binary"},
		{ID: 4, Name: "prefer not to say"},
		{ID: 5, Name: "other"},
	}
}
