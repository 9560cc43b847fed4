package types

import (
	"strconv"
	"strings"
)

// ActionKind is the decoded meaning of a control value.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionMenu
	ActionRegister
	ActionList
	ActionDelete
	ActionHelp
	ActionCategory
	ActionBack
	ActionAddPhoto
	ActionSkipPhoto
	ActionConfirm
	ActionCancel
	ActionSelect
	ActionYes
	ActionNo
)

// Action is a typed control selection. Index is set for ActionCategory and
// Target for ActionSelect.
type Action struct {
	Kind   ActionKind
	Index  int
	Target ReportID
}

var fixedActions = map[string]ActionKind{
	"menu":          ActionMenu,
	"menu:register": ActionRegister,
	"menu:list":     ActionList,
	"menu:delete":   ActionDelete,
	"menu:help":     ActionHelp,
	"back":          ActionBack,
	"photo:add":     ActionAddPhoto,
	"photo:skip":    ActionSkipPhoto,
	"save:confirm":  ActionConfirm,
	"save:cancel":   ActionCancel,
	"delconf:yes":   ActionYes,
	"delconf:no":    ActionNo,
}

const (
	categoryPrefix = "cat:"
	selectPrefix   = "del:"
)

// ParseAction decodes a control value. Unrecognised values yield
// ActionUnknown.
func ParseAction(value string) Action {
	if kind, ok := fixedActions[value]; ok {
		return Action{Kind: kind}
	}
	if rest, ok := strings.CutPrefix(value, categoryPrefix); ok {
		i, err := strconv.Atoi(rest)
		if err != nil {
			return Action{}
		}
		if _, ok := CategoryAt(i); !ok {
			return Action{}
		}
		return Action{Kind: ActionCategory, Index: i}
	}
	if rest, ok := strings.CutPrefix(value, selectPrefix); ok && rest != "" {
		return Action{Kind: ActionSelect, Target: ReportID(rest)}
	}
	return Action{}
}

// Value encodes the action as a control value.
func (a Action) Value() string {
	switch a.Kind {
	case ActionCategory:
		return categoryPrefix + strconv.Itoa(a.Index)
	case ActionSelect:
		return selectPrefix + string(a.Target)
	}
	for value, kind := range fixedActions {
		if kind == a.Kind {
			return value
		}
	}
	return ""
}

func (a Action) Control(label string) Control {
	return Control{Label: label, Value: a.Value()}
}
