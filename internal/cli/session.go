package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/sqlgate/internal/dbconn"
	"github.com/roach88/sqlgate/internal/param"
	"github.com/roach88/sqlgate/internal/querydef"
	"github.com/roach88/sqlgate/internal/session"
	"github.com/roach88/sqlgate/internal/sqlquery"
)

// definition is a loaded and built query definition.
type definition struct {
	doc   *querydef.Document
	query sqlquery.Query
	sql   string
}

func loadDefinition(path string) (*definition, error) {
	doc, err := querydef.Load(path)
	if err != nil {
		return nil, err
	}
	q, err := doc.Build()
	if err != nil {
		return nil, err
	}
	text, err := sqlquery.Build(q)
	if err != nil {
		return nil, err
	}
	return &definition{doc: doc, query: q, sql: text}, nil
}

// callOptions binds the declared params, with --arg values overriding
// declared values by name. Arguments that match no declared param are bound
// as plain inputs.
func (d *definition) callOptions(args map[string]string) ([]session.CallOption, []*param.Parameter, error) {
	params, err := d.doc.Parameters()
	if err != nil {
		return nil, nil, err
	}

	extra := make(map[string]any)
	for name, value := range args {
		matched := false
		for _, p := range params {
			if strings.EqualFold(p.BindName(), strings.TrimPrefix(name, "@")) {
				p.Value = value
				matched = true
			}
		}
		if !matched {
			extra[strings.TrimPrefix(name, "@")] = value
		}
	}

	opts := []session.CallOption{session.Op(d.doc.Name), session.WithParams(params...)}
	if len(extra) > 0 {
		opts = append(opts, session.WithArgs(extra))
	}
	if d.doc.Procedure() {
		opts = append(opts, session.AsProcedure())
	}
	return opts, params, nil
}

// openSession connects with the resolved settings. The returned cleanup
// closes the session and the pool.
func (o *RootOptions) openSession(ctx context.Context) (*session.Session, func(), error) {
	cfg := o.cfg
	db, err := dbconn.Open(ctx, cfg.Options())
	if err != nil {
		return nil, nil, err
	}

	sess := session.New(db,
		session.WithLogger(slog.Default()),
		session.WithIdentity(session.Identity{
			SubjectID: cfg.Identity.SubjectID,
			Address:   cfg.Identity.Address,
		}),
		session.WithContextSetter(session.RLSContextSetter{Statement: cfg.ContextStatement}),
	)
	slog.Debug("session opened", "session", sess.ID(), "driver", cfg.Driver)

	cleanup := func() {
		if err := sess.Close(); err != nil {
			slog.Error("error closing session", "error", err)
		}
		if err := db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}
	return sess, cleanup, nil
}

// parseArgs splits repeated name=value flags.
func parseArgs(raw []string) (map[string]string, error) {
	args := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --arg %q: want name=value", kv)
		}
		args[strings.TrimSpace(name)] = value
	}
	return args, nil
}
