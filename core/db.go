package core

// DBOrdering expresses a single ORDER BY term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingsToSQL joins orderings for use in an ORDER BY clause. Fields are
// not escaped; they must have been filtered against a sortable set upstream.
func OrderingsToSQL(orderings []DBOrdering) string {
	if len(orderings) == 0 {
		return ""
	}
	s := orderings[0].String()
	for _, ord := range orderings[1:] {
		s += ", " + ord.String()
	}
	return s
}
