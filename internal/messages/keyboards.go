package messages

import (
	"github.com/user/kernel6/internal/types"
	"github.com/user/kernel6/internal/validation"
)

const maxSelectLabel = 30

func row(controls ...types.Control) []types.Control { return controls }

func act(kind types.ActionKind, label string) types.Control {
	return types.Action{Kind: kind}.Control(label)
}

// MenuKeyboard is the top-level menu.
func MenuKeyboard() types.Keyboard {
	return types.Keyboard{
		row(act(types.ActionRegister, LabelRegister)),
		row(act(types.ActionList, LabelList)),
		row(act(types.ActionDelete, LabelDelete)),
		row(act(types.ActionHelp, LabelHelp)),
	}
}

// BackToMenuKeyboard holds the single "back to menu" control.
func BackToMenuKeyboard() types.Keyboard {
	return types.Keyboard{row(act(types.ActionMenu, LabelBackToMenu))}
}

// BackKeyboard holds the single "back" control.
func BackKeyboard() types.Keyboard {
	return types.Keyboard{row(act(types.ActionBack, LabelBack))}
}

// CategoryKeyboard lists every category followed by "back to menu".
func CategoryKeyboard() types.Keyboard {
	kb := make(types.Keyboard, 0, len(types.Categories)+1)
	for i, c := range types.Categories {
		kb = append(kb, row(types.Action{Kind: types.ActionCategory, Index: i}.Control(string(c))))
	}
	return append(kb, row(act(types.ActionMenu, LabelBackToMenu)))
}

func PhotoChoiceKeyboard() types.Keyboard {
	return types.Keyboard{
		row(act(types.ActionAddPhoto, LabelAddPhoto), act(types.ActionSkipPhoto, LabelSkipPhoto)),
		row(act(types.ActionBack, LabelBack)),
	}
}

func ConfirmationKeyboard() types.Keyboard {
	return types.Keyboard{
		row(act(types.ActionConfirm, LabelConfirm), act(types.ActionCancel, LabelCancel)),
		row(act(types.ActionBack, LabelBack)),
	}
}

func ConfirmDeleteKeyboard() types.Keyboard {
	return types.Keyboard{
		row(act(types.ActionYes, LabelYes), act(types.ActionNo, LabelNo)),
		row(act(types.ActionBack, LabelBack)),
	}
}

// SelectionKeyboard renders one control per report, labelled with its
// truncated title, followed by "back".
func SelectionKeyboard(reports []*types.Report) types.Keyboard {
	kb := make(types.Keyboard, 0, len(reports)+1)
	for _, r := range reports {
		kb = append(kb, row(types.Action{Kind: types.ActionSelect, Target: r.ID}.Control(SelectLabel(r))))
	}
	return append(kb, row(act(types.ActionBack, LabelBack)))
}

func SelectLabel(r *types.Report) string {
	if r.Title == "" {
		return UntitledLabel
	}
	return validation.Truncate(r.Title, maxSelectLabel)
}

// Menu is the welcome message with the top-level menu.
func Menu() types.Reply {
	return types.Reply{Text: Welcome, Keyboard: MenuKeyboard()}
}

// Notice is a short message offering a way back to the menu.
func Notice(text string) types.Reply {
	return types.Reply{Text: text, Keyboard: BackToMenuKeyboard()}
}

func Text(text string, kb types.Keyboard) types.Reply {
	return types.Reply{Text: text, Keyboard: kb}
}
