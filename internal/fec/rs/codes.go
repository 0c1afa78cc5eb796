package rs

//nolint:gochecknoglobals // fixed code tables
var (
	RS241213 = New(24, 12) // P25 LDU1 LC, TDULC
	RS24169  = New(24, 16) // P25 LDU2 encryption sync
	RS362017 = New(36, 20) // P25 HDU
)
