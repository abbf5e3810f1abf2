package offload

import (
	"context"
	"testing"

	"github.com/variome/variome/store/mem"
	"github.com/variome/variome/testutil"
)

func TestStorage(t *testing.T) {
	testutil.Storage(context.Background(), t, New(mem.New(), mem.New()))
}

func TestTheories(t *testing.T) {
	testutil.Theories(context.Background(), t, New(mem.New(), mem.New()))
}
