package common

type SessionState uint

const (
	ConnectView SessionState = iota
	StatusView
	ActivityView
	ReloadActivity
)
