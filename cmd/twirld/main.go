// Command twirld serves the example Haberdasher service over the twirl
// protocol. It exists to exercise the dispatcher end to end:
//
//	twirld serve --addr :8080
//	curl -X POST -H 'Content-Type: application/json' \
//	    -d '{"inches": 10}' \
//	    http://localhost:8080/twirp/twirl.example.Haberdasher/MakeHat
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"google.golang.org/protobuf/proto"

	"github.com/twirl-rpc/twirl"
	"github.com/twirl-rpc/twirl/internal/hatproto"
	"github.com/twirl-rpc/twirl/middleware"
)

type CLI struct {
	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve the example Haberdasher service."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

type ServeCmd struct {
	Addr    string `help:"Address to listen on." default:":8080"`
	JSONLog bool   `help:"Log in JSON format." name:"json-log"`
	Mask    bool   `help:"Mask internal error messages."`
}

func (c *ServeCmd) Run() error {
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if c.JSONLog {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)

	desc, err := twirl.NewDescriptor("twirl.example", "Haberdasher").
		RPC("MakeHat", hatproto.SizeType, hatproto.HatType).
		Build()
	if err != nil {
		return err
	}

	svc, err := twirl.NewService(desc, &haberdasher{})
	if err != nil {
		return err
	}
	svc.WithLogger(logger).
		WithUnaryInterceptor(middleware.LoggingInterceptor(logger))
	if c.Mask {
		svc.WithMaskInternalErrors()
	}

	logger.Info("listening",
		slog.String("addr", c.Addr),
		slog.String("prefix", desc.PathPrefix()))
	return http.ListenAndServe(c.Addr, svc)
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

// haberdasher makes hats. Sizes outside the supported range are rejected
// with invalid_argument.
type haberdasher struct{}

var colors = []string{"white", "black", "brown", "red", "blue"}

func (h *haberdasher) MakeHat(ctx context.Context, size proto.Message) (proto.Message, error) {
	inches := hatproto.Inches(size)
	if inches <= 0 {
		return nil, twirl.Errorf(twirl.CodeInvalidArgument, "inches must be greater than 0, got %d", inches)
	}
	color := colors[rand.IntN(len(colors))]
	return hatproto.NewHat(inches, color, color+" bowler"), nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("twirld"),
		kong.Description("Example server for the twirl RPC protocol."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
