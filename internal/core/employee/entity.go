package employee

import "time"

// OpenEnded は現在有効なバージョンの to_date に使う番兵値です。
var OpenEnded = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)

// Gender は社員の性別コードです。
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Employee は社員の識別レコードです。変更可能なのは氏名のみです。
type Employee struct {
	ID        int64
	BirthDate time.Time
	FirstName string
	LastName  string
	Gender    Gender
	HireDate  time.Time
}

// CurrentView は社員と、現在有効な給与・役職・所属部署を合わせたビューです。
type CurrentView struct {
	Employee
	Salary         int64
	Title          string
	DepartmentNo   string
	DepartmentName string
}

// TopEarner は平均を上回る現在給与を持つ社員です。
type TopEarner struct {
	ID             int64
	FirstName      string
	LastName       string
	DepartmentName string
	Salary         int64
}
