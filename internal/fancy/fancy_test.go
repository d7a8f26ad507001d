package fancy_test

import (
	"testing"

	"github.com/atlanticdynamic/cargolynx/internal/fancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type StylesTestSuite struct {
	suite.Suite
}

func (s *StylesTestSuite) TestHelpersKeepText() {
	text := "tomcat7x"
	for name, fn := range map[string]func(string) string{
		"key":      fancy.KeyText,
		"runtime":  fancy.RuntimeText,
		"artifact": fancy.ArtifactText,
		"path":     fancy.PathText,
		"valid":    fancy.ValidText,
		"error":    fancy.ErrorText,
	} {
		s.Contains(fn(text), text, name)
	}
}

func (s *StylesTestSuite) TestStateText() {
	for _, state := range []string{"Running", "Stopped", "Error", "Installed", "Unknown"} {
		s.Contains(fancy.StateText(state), state)
	}
}

func TestStylesSuite(t *testing.T) {
	suite.Run(t, new(StylesTestSuite))
}

func TestTrees(t *testing.T) {
	t.Parallel()

	root := fancy.RootTree("cargolynx")
	branch := fancy.BranchNode("Runtimes", "(2)")
	branch.Child(fancy.Field("archive", "apache-tomcat-7.0.29.zip"))
	root.Child(branch)

	out := root.String()
	assert.Contains(t, out, "cargolynx")
	assert.Contains(t, out, "Runtimes")
	assert.Contains(t, out, "(2)")
	assert.Contains(t, out, "apache-tomcat-7.0.29.zip")

	assert.Contains(t, fancy.BranchNode("Empty", "").String(), "Empty")
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is far too long", 10, "this is..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fancy.TruncateString(tt.in, tt.max))
	}
}
