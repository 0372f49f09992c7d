package entity

// Роли из клеймов сессии
const (
	RoleAdmin = "ADMIN"
	RoleHost  = "HOST"
)

// Actor - аутентифицированный пользователь, выполняющий действие
type Actor struct {
	UserID uint
	Role   string
	SiteID uint
}

// IsAdmin проверяет роль администратора
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// CanHost проверяет, может ли пользователь вести игры (на какой-либо площадке)
func (a *Actor) CanHost() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleHost)
}

// CanHostSite проверяет, может ли пользователь вести игру на площадке siteID
func (a *Actor) CanHostSite(siteID uint) bool {
	if a.IsAdmin() {
		return true
	}
	return a != nil && a.Role == RoleHost && a.SiteID == siteID
}
