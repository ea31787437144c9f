package entity

// Roles del personal.
const (
	RoleManager       = "Manager"
	RoleSupervisor    = "Supervisor"
	RoleStorekeeper   = "Storekeeper"
	RoleDeveloper     = "Developer"
	RoleAccountant    = "Accountant"
	RoleBaker         = "Baker"
	RoleChiefBaker    = "Chief Baker"
	RoleDeliveryStaff = "Delivery Staff"
	RoleShowroomStaff = "Showroom Staff"
)

// StoreRoles son los roles que operan sobre el almacén central.
var StoreRoles = []string{RoleManager, RoleSupervisor, RoleStorekeeper, RoleDeveloper}

// IsStoreRole indica si el rol opera sobre el stock central y no sobre un stock personal.
func IsStoreRole(role string) bool {
	for _, r := range StoreRoles {
		if r == role {
			return true
		}
	}
	return false
}

// CurrentUser es el actor de una operación. Lo resuelve la capa de autenticación
// y se pasa explícitamente a cada llamada del motor.
type CurrentUser struct {
	StaffID string
	Name    string
	Role    string
}

// Valid indica si el actor está identificado.
func (u CurrentUser) Valid() bool {
	return u.StaffID != "" && u.Role != ""
}

// ScopeForStaff resuelve el contador de stock que opera un empleado según su rol.
func ScopeForStaff(staffID, role string) Scope {
	if IsStoreRole(role) {
		return ScopeCentral
	}
	return StaffScope(staffID)
}

// StockScope devuelve el scope de stock que opera el actor.
func (u CurrentUser) StockScope() Scope {
	return ScopeForStaff(u.StaffID, u.Role)
}
