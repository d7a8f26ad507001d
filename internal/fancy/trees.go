package fancy

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

// Tree returns an empty tree with the shared enumerator styling.
func Tree() *tree.Tree {
	return tree.New().
		EnumeratorStyle(BranchStyle).
		Enumerator(tree.RoundedEnumerator)
}

// RootTree returns a styled tree rooted at title.
func RootTree(title string) *tree.Tree {
	return Tree().Root(RootStyle.Render(title))
}

// BranchNode is a section header with an optional note, such as an item count.
func BranchNode(title, note string) *tree.Tree {
	root := HeaderStyle.Render(title)
	if note != "" {
		root = lipgloss.JoinHorizontal(lipgloss.Top, root, " ", InfoStyle.Render(note))
	}
	return Tree().Root(root)
}

// Field renders a "name: value" leaf.
func Field(name string, value any) string {
	return fmt.Sprintf("%s: %v", KeyText(name), value)
}

// TruncateString shortens s to maxLength, ending in "...".
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}
