package privilege

import (
	"github.com/newsroomhq/newsdesk/store"
)

// Action couples a workflow action id with the privilege required to use it.
type Action struct {
	ID        string
	Privilege string
}

// ActionRegistry is the startup-time table of workflow actions. Like the
// preference registry it is populated once during single-threaded
// initialization and read-only afterwards.
type ActionRegistry struct {
	actions []Action
	index   map[string]int
}

// NewActionRegistry creates an empty action registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{index: make(map[string]int)}
}

// RegisterAction registers an action and the privilege it requires.
// Re-registering an id overwrites the entry but keeps its original position.
func (r *ActionRegistry) RegisterAction(id, requiredPrivilege string) {
	if pos, ok := r.index[id]; ok {
		r.actions[pos].Privilege = requiredPrivilege
		return
	}
	r.index[id] = len(r.actions)
	r.actions = append(r.actions, Action{ID: id, Privilege: requiredPrivilege})
}

// PrivilegedActions returns the ids of all actions whose required privilege
// is granted, in registration order.
func (r *ActionRegistry) PrivilegedActions(privileges store.PrivilegeMap) []string {
	permitted := []string{}
	for _, action := range r.actions {
		if privileges[action.Privilege] > 0 {
			permitted = append(permitted, action.ID)
		}
	}
	return permitted
}

// NewDefaultActionRegistry creates a registry populated with the stock
// editorial workflow actions.
func NewDefaultActionRegistry() *ActionRegistry {
	r := NewActionRegistry()
	r.RegisterAction("spike", "spike")
	r.RegisterAction("unspike", "unspike")
	r.RegisterAction("edit", "archive")
	r.RegisterAction("duplicate", "duplicate")
	r.RegisterAction("publish", "publish")
	r.RegisterAction("correct", "correct")
	r.RegisterAction("kill", "kill")
	return r
}
