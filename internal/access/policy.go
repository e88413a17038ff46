package access

import (
	"fmt"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Resource тип защищаемого ресурса.
type Resource uint8

const (
	ResourceCourse Resource = iota
	ResourceLesson
)

func (r Resource) String() string {
	if r == ResourceLesson {
		return "lesson"
	}
	return "course"
}

// Action действие над ресурсом. ActionView покрывает и просмотр, и список.
type Action uint8

const (
	ActionView Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "view"
	}
}

// Decision результат проверки доступа.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// Target ресурс, к которому обращается Actor. Для создания урока OwnerID
// указывает на владельца родительского курса, для создания курса он пуст.
type Target struct {
	Resource Resource
	OwnerID  *int64
}

// OwnedBy проверяет, что ресурс принадлежит пользователю.
func (t Target) OwnedBy(userID int64) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

// CourseTarget цель для операций над существующим курсом.
func CourseTarget(c *models.Course) Target {
	return Target{Resource: ResourceCourse, OwnerID: c.OwnerID}
}

// NewCourseTarget цель для создания курса.
func NewCourseTarget() Target {
	return Target{Resource: ResourceCourse}
}

// LessonTarget цель для операций над существующим уроком.
func LessonTarget(l *models.Lesson) Target {
	return Target{Resource: ResourceLesson, OwnerID: l.OwnerID}
}

// NewLessonTarget цель для создания урока в курсе parent.
func NewLessonTarget(parent *models.Course) Target {
	return Target{Resource: ResourceLesson, OwnerID: parent.OwnerID}
}

// capability один бит на пару (ресурс, действие).
type capability uint16

func capOf(r Resource, a Action) capability {
	return 1 << (uint(r)*4 + uint(a))
}

func caps(pairs ...capability) capability {
	var c capability
	for _, p := range pairs {
		c |= p
	}
	return c
}

// capabilitySet набор возможностей роли: any действует на любой ресурс,
// own только на принадлежащий пользователю.
type capabilitySet struct {
	any capability
	own capability
}

// Policy таблица возможностей по ролям.
type Policy struct {
	roles map[Role]capabilitySet
}

// NewPolicy строит политику. При adminDeleteOwnerOnly администратор удаляет
// только свои курсы и уроки, иначе любые. Настройка одинакова для обоих ресурсов.
func NewPolicy(adminDeleteOwnerOnly bool) *Policy {
	var all capability
	for _, r := range []Resource{ResourceCourse, ResourceLesson} {
		for _, a := range []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete} {
			all |= capOf(r, a)
		}
	}
	deletes := caps(capOf(ResourceCourse, ActionDelete), capOf(ResourceLesson, ActionDelete))

	admin := capabilitySet{any: all, own: all}
	if adminDeleteOwnerOnly {
		admin.any &^= deletes
	}

	moderator := capabilitySet{
		any: caps(
			capOf(ResourceCourse, ActionView), capOf(ResourceCourse, ActionUpdate),
			capOf(ResourceLesson, ActionView), capOf(ResourceLesson, ActionUpdate),
		),
	}

	user := capabilitySet{
		any: capOf(ResourceCourse, ActionCreate),
		own: caps(
			capOf(ResourceCourse, ActionView), capOf(ResourceCourse, ActionUpdate), capOf(ResourceCourse, ActionDelete),
			capOf(ResourceLesson, ActionView), capOf(ResourceLesson, ActionCreate),
			capOf(ResourceLesson, ActionUpdate), capOf(ResourceLesson, ActionDelete),
		),
	}

	return &Policy{roles: map[Role]capabilitySet{
		RoleAdmin:     admin,
		RoleModerator: moderator,
		RoleUser:      user,
	}}
}

// Decide решает, может ли actor выполнить action над target.
func (p *Policy) Decide(actor Actor, target Target, action Action) Decision {
	if !actor.Authenticated() {
		return Deny
	}
	c := p.roles[actor.Role]
	bit := capOf(target.Resource, action)
	if c.any&bit != 0 {
		return Allow
	}
	if c.own&bit != 0 && target.OwnedBy(actor.UserID) {
		return Allow
	}
	return Deny
}

// Authorize возвращает models.ErrPermissionDenied, если действие запрещено.
func (p *Policy) Authorize(actor Actor, target Target, action Action) error {
	if p.Decide(actor, target, action) == Deny {
		return fmt.Errorf("%w: %s cannot %s %s", models.ErrPermissionDenied, actor.Role, action, target.Resource)
	}
	return nil
}

// SeesAll сообщает, видит ли actor в списках все ресурсы, а не только свои.
func (p *Policy) SeesAll(actor Actor, resource Resource) bool {
	if !actor.Authenticated() {
		return false
	}
	return p.roles[actor.Role].any&capOf(resource, ActionView) != 0
}
