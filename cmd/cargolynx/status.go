package main

import (
	"context"
	"fmt"
	"os"

	"github.com/atlanticdynamic/cargolynx/internal/container"
	"github.com/atlanticdynamic/cargolynx/internal/fancy"
	"github.com/atlanticdynamic/cargolynx/internal/session"
	"github.com/urfave/cli/v3"
)

func newStatusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the containers of this session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Include the provisioning log of each container",
			},
		},
		Action: statusAction,
	}
}

func statusAction(_ context.Context, cmd *cli.Command) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return cli.Exit(err, 1)
	}
	m, err := env.manager()
	if err != nil {
		return cli.Exit(err, 1)
	}

	records := m.Status()
	w := cmd.Root().Writer
	fmt.Fprintln(w, renderStatus(env.session, records))

	if !cmd.Bool("verbose") {
		return nil
	}
	for _, rec := range records {
		data, err := os.ReadFile(m.ProvisionLog(rec.Key))
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "\n%s\n%s", fancy.HeaderStyle.Render("Provision log: "+rec.Key), data)
	}
	return nil
}

func renderStatus(sess *session.Session, records []session.Record) string {
	t := fancy.RootTree(fmt.Sprintf("Session %s", sess.ID()))
	t.Child(fancy.Field("dir", fancy.PathText(sess.Dir())))
	t.Child(fancy.Field("created", sess.CreatedAt().Format("2006-01-02 15:04:05 MST")))

	if len(records) == 0 {
		t.Child(fancy.PathText("no containers"))
		return t.String()
	}

	for _, rec := range records {
		node := fancy.BranchNode(fancy.RuntimeText(rec.Key), fancy.StateText(rec.State))
		if rec.Failed() {
			node.Child(fancy.Field("failure", fancy.ErrorText(fancy.TruncateString(rec.Failure, 160))))
			t.Child(node)
			continue
		}
		node.Child(fancy.Field("port", rec.Port))
		if rec.PID > 0 {
			node.Child(fancy.Field("pid", rec.PID))
		}
		node.Child(fancy.Field("home", fancy.PathText(rec.HomeDir)))
		node.Child(fancy.Field("base", fancy.PathText(rec.BaseDir)))
		node.Child(fancy.Field("log", fancy.PathText(rec.LogFile)))
		if rec.Deployable != nil {
			node.Child(fancy.Field("deployable", fmt.Sprintf("%s -> /%s",
				fancy.ArtifactText(rec.Deployable.Path), rec.Deployable.Context)))
		}
		if len(rec.SystemProperties) > 0 {
			node.Child(fancy.Field("system properties", container.SystemPropertyArgs(rec.SystemProperties)))
		}
		t.Child(node)
	}
	return t.String()
}
