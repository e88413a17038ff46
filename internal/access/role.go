// Package access реализует политику доступа к курсам и урокам.
//
// Роль пользователя вычисляется один раз на запрос из флагов учётной записи
// и превращается в набор возможностей. Решение принимает чистая функция
// Policy.Decide без состояния и побочных эффектов.
package access

import (
	"fmt"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Role закрытое перечисление ролей, от меньших прав к большим.
type Role uint8

const (
	RoleUser Role = iota
	RoleModerator
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleModerator:
		return "moderator"
	default:
		return "user"
	}
}

// ParseRole разбирает имя роли из токена или аргумента CLI.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "moderator":
		return RoleModerator, nil
	case "user":
		return RoleUser, nil
	}
	return RoleUser, fmt.Errorf("access.ParseRole: unknown role %q", s)
}

// RoleOf определяет роль пользователя по флагам. Администратор старше модератора.
func RoleOf(u *models.User) Role {
	switch {
	case u.IsAdmin:
		return RoleAdmin
	case u.IsModerator:
		return RoleModerator
	default:
		return RoleUser
	}
}

// Actor аутентифицированный пользователь, выполняющий операцию.
type Actor struct {
	UserID int64
	Email  string
	Role   Role
}

// NewActor строит Actor из учётной записи.
func NewActor(u *models.User) Actor {
	return Actor{UserID: u.ID, Email: u.Email, Role: RoleOf(u)}
}

// Authenticated сообщает, что Actor соответствует реальному пользователю.
func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

// IsAdmin сокращение для проверки роли администратора.
func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == RoleAdmin
}

// IsStaff администратор или модератор.
func (a Actor) IsStaff() bool {
	return a.Authenticated() && (a.Role == RoleAdmin || a.Role == RoleModerator)
}
