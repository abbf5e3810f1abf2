package file

import (
	"context"
	"io/ioutil"
	"os"
	"testing"

	"github.com/variome/variome/testutil"
)

func TestStorage(t *testing.T) {
	dirname, err := ioutil.TempDir("", "variomefilestore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	testutil.Storage(context.Background(), t, New(dirname))
}

func TestTheories(t *testing.T) {
	dirname, err := ioutil.TempDir("", "variomefilestore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	testutil.Theories(context.Background(), t, New(dirname))
}
