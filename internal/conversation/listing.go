package conversation

import (
	"github.com/user/kernel6/internal/messages"
	"github.com/user/kernel6/internal/types"
)

// Listing renders one message per report, newest first as given. Reports
// with a photo are sent as images captioned with their entry. The last
// message carries the way back to the menu.
func Listing(reports []*types.Report) []types.Reply {
	if len(reports) == 0 {
		return []types.Reply{messages.Notice(messages.ListEmpty)}
	}
	out := make([]types.Reply, 0, len(reports))
	for i, r := range reports {
		reply := types.Reply{Text: messages.FormatListEntry(i+1, r)}
		if r.HasPhoto() {
			reply.ImageRef = *r.PhotoRef
		}
		out = append(out, reply)
	}
	out[len(out)-1].Keyboard = messages.BackToMenuKeyboard()
	return out
}
