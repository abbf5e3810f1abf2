package logging

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"testing"

	"github.com/variome/variome/store/mem"
	"github.com/variome/variome/testutil"
)

func TestStorage(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	defer log.SetOutput(os.Stderr)

	testutil.Storage(context.Background(), t, New(mem.New()))
}

func TestTheories(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	defer log.SetOutput(os.Stderr)

	testutil.Theories(context.Background(), t, New(mem.New()))
}
