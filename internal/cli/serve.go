package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/dmitrymomot/mailmerge/internal/preview"
)

func (a *App) runServe(ctx context.Context, args []string) error {
	fs := a.newFlagSet("serve")
	addr := fs.String("addr", a.cfg.PreviewAddr, "listen address")
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	backend, err := a.openBackend(ctx, rest[0])
	if err != nil {
		return err
	}

	return preview.Serve(ctx, *addr, preview.NewRouter(backend, a.Registry, a.log),
		preview.WithLogger(a.log),
		preview.WithOnListen(func(ln net.Addr) {
			fmt.Fprintf(a.Stdout, "Reviewing %s at http://%s/ (Ctrl+C to stop)\n", rest[0], ln)
		}),
	)
}
