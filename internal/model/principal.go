package model

type OperatorRole string

const (
	OperatorRoleAttendant  OperatorRole = "ATTENDANT"
	OperatorRoleSupervisor OperatorRole = "SUPERVISOR"
)

type Principal struct {
	Username string
	Role     OperatorRole
}

func (p Principal) IsAttendant() bool {
	return p.Role == OperatorRoleAttendant
}

func (p Principal) IsSupervisor() bool {
	return p.Role == OperatorRoleSupervisor
}
