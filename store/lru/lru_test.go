package lru

import (
	"context"
	"testing"

	"github.com/variome/variome/store/mem"
	"github.com/variome/variome/testutil"
)

func TestStorage(t *testing.T) {
	s, err := New(mem.New(), 10)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Storage(context.Background(), t, s)
}

func TestTheories(t *testing.T) {
	s, err := New(mem.New(), 10)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Theories(context.Background(), t, s)
}
