package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/atlanticdynamic/cargolynx/internal/fancy"
)

// String returns a pretty-printed tree of the configuration.
func (c *Config) String() string {
	return ConfigTree(c)
}

// ConfigTree renders cfg as a lipgloss tree.
func ConfigTree(cfg *Config) string {
	t := fancy.RootTree(fmt.Sprintf("cargolynx config (%s)", cfg.Version))

	logging := fancy.BranchNode("Logging", "")
	logging.Child(fancy.Field("format", cfg.Logging.Format))
	logging.Child(fancy.Field("level", cfg.Logging.Level))
	t.Child(logging)

	t.Child(fancy.BranchNode("Session", "").Child(fancy.Field("dir", fancy.PathText(cfg.Session.Dir))))

	repos := fancy.BranchNode("Repositories", fmt.Sprintf("(%d remote)", len(cfg.Repositories.Remote)))
	repos.Child(fancy.Field("local", fancy.PathText(cfg.Repositories.Local)))
	for _, r := range cfg.Repositories.Remote {
		repos.Child(fancy.Field(r.ID, r.URL))
	}
	if cfg.Repositories.DisableThirdParty {
		repos.Child(fancy.InfoStyle.Render("third-party repository disabled"))
	}
	t.Child(repos)

	if len(cfg.Variables) > 0 {
		vars := fancy.BranchNode("Variables", fmt.Sprintf("(%d)", len(cfg.Variables)))
		for _, k := range slices.Sorted(maps.Keys(cfg.Variables)) {
			vars.Child(fancy.Field(k, cfg.Variables[k]))
		}
		t.Child(vars)
	}

	home := fancy.BranchNode("Home", "")
	home.Child(fancy.Field("archive", fancy.ArtifactText(cfg.Home.Archive)))
	home.Child(fancy.Field("dir", fancy.PathText(cfg.Home.Dir)))
	home.Child(fancy.Field("install properties", fancy.PathText(cfg.Home.InstallProperties)))
	t.Child(home)

	ct := cfg.Container
	container := fancy.BranchNode("Container", fancy.RuntimeText(ct.ID))
	container.Child(fancy.Field("ports", fmt.Sprintf("http %d, shutdown %d, ajp %d", ct.Port, ct.ShutdownPort, ct.AJPPort)))
	container.Child(fancy.Field("app archive", fancy.ArtifactText(ct.AppArchive)))
	container.Child(fancy.Field("context", ct.Context))
	container.Child(fancy.Field("log file", fancy.PathText(ct.LogFile)))
	if ct.HomeDir != "" {
		container.Child(fancy.Field("home dir", fancy.PathText(ct.HomeDir)))
	}
	for _, k := range slices.Sorted(maps.Keys(ct.SystemProperties)) {
		container.Child(fancy.Field("-D"+k, ct.SystemProperties[k]))
	}
	t.Child(container)

	runtimes := fancy.BranchNode("Runtimes", fmt.Sprintf("(%d)", len(cfg.Runtimes)))
	for _, id := range slices.Sorted(maps.Keys(cfg.Runtimes)) {
		runtimes.Child(cfg.Runtimes[id].tree(id))
	}
	t.Child(runtimes)

	return t.String()
}

func (rt RuntimeConfig) tree(id string) any {
	node := fancy.BranchNode(fancy.RuntimeText(id), "")
	node.Child(fancy.Field("archive", fancy.ArtifactText(rt.Archive)))
	node.Child(fancy.Field("command", strings.Join(rt.Command, " ")))
	node.Child(fancy.Field("deploy", fmt.Sprintf("%s into %s", rt.DeployableType, rt.DeployDir)))
	if len(rt.Templates) > 0 {
		node.Child(fancy.Field("templates", len(rt.Templates)))
	}
	if rt.WaitForPort {
		node.Child(fancy.Field("start timeout", rt.StartTimeout))
	}
	node.Child(fancy.Field("stop timeout", rt.StopTimeout))
	return node
}
