package model

type Vote struct {
	ID     string
	Email  string
	Ballot *bool
	Closed bool
}
