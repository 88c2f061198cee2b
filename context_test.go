package twirl

import (
	"context"
	"net/http"
	"testing"

	"google.golang.org/protobuf/proto"

	"github.com/twirl-rpc/twirl/internal/hatproto"
	"github.com/twirl-rpc/twirl/testutil"
)

func TestMethodFromContextOutsideDispatch(t *testing.T) {
	if _, _, ok := MethodFromContext(context.Background()); ok {
		t.Error("expected no RPC info on a bare context")
	}
	if r := RequestFromContext(context.Background()); r != nil {
		t.Error("expected no request on a bare context")
	}
}

// contextProbe records what a handler can see in its context.
type contextProbe struct {
	service, method string
	infoOK          bool
	request         *http.Request
}

func (p *contextProbe) MakeHat(ctx context.Context, size proto.Message) (proto.Message, error) {
	p.service, p.method, p.infoOK = MethodFromContext(ctx)
	p.request = RequestFromContext(ctx)
	SetHeader(ctx, "X-Hat-Factory", "no. 7")
	return hatproto.NewHat(hatproto.Inches(size), "white", ""), nil
}

func TestHandlerContext(t *testing.T) {
	desc, err := NewDescriptor("twirl.example", "Haberdasher").
		RPC("MakeHat", hatproto.SizeType, hatproto.HatType).
		Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	probe := &contextProbe{}
	svc, err := NewService(desc, probe)
	if err != nil {
		t.Fatalf("NewService() failed: %v", err)
	}

	w := testutil.NewRequest().
		POST("/twirp/twirl.example.Haberdasher/MakeHat").
		WithJSON(map[string]any{"inches": 10}).
		Serve(svc)

	testutil.AssertStatus(t, w, http.StatusOK)

	if !probe.infoOK {
		t.Fatal("expected RPC info in handler context")
	}
	if probe.service != "twirl.example.Haberdasher" || probe.method != "MakeHat" {
		t.Errorf("unexpected RPC info: %s/%s", probe.service, probe.method)
	}
	if probe.request == nil {
		t.Error("expected HTTP request in handler context")
	}
	if got := w.Header().Get("X-Hat-Factory"); got != "no. 7" {
		t.Errorf("expected SetHeader to reach the response, got %q", got)
	}
}
