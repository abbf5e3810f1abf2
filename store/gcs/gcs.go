// Package gcs implements a payload store on Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrs "errors"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/bobg/hashsplit"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/variome/variome"
)

var _ variome.PayloadStore = &Store{}

// Store is a Google Cloud Storage-based implementation of a payload
// store. A payload's canonical encoding is hashsplit into chunk objects,
// with a manifest object listing the chunks in order. Chunks dedupe
// across payloads that share runs of identical variants.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// GetPayload gets a variant-set payload by fingerprint,
// fetching its chunks in parallel.
func (s *Store) GetPayload(ctx context.Context, fp variome.Fingerprint) (variome.VariantSet, error) {
	manifest, err := s.readObj(ctx, payloadObjName(fp))
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, variome.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest for %s", fp)
	}

	names := strings.Fields(string(manifest))
	chunks := make([][]byte, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			chunk, err := s.readObj(gctx, name)
			if err != nil {
				return errors.Wrapf(err, "reading chunk %s", name)
			}
			chunks[i] = chunk
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return variome.DecodeVariantSet(bytes.Join(chunks, nil))
}

// PutPayload adds a payload if it was not already present.
func (s *Store) PutPayload(ctx context.Context, variants variome.VariantSet) (variome.Fingerprint, bool, error) {
	fp := variants.Fingerprint()

	var names []string
	spl := hashsplit.NewSplitter(func(chunk []byte, level uint) error {
		name := chunkObjName(chunk)
		names = append(names, name)
		return s.writeObj(ctx, name, chunk)
	})
	spl.MinSize = 1024
	spl.SplitBits = 14

	if _, err := spl.Write(variants.Encode()); err != nil {
		return variome.Fingerprint{}, false, errors.Wrap(err, "splitting payload")
	}
	if err := spl.Close(); err != nil {
		return variome.Fingerprint{}, false, errors.Wrap(err, "flushing splitter")
	}

	var (
		name = payloadObjName(fp)
		obj  = s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true})
		w    = obj.NewWriter(ctx)
	)
	_, err := w.Write([]byte(strings.Join(names, "\n")))
	if err == nil {
		err = w.Close()
	} else {
		w.Close() //nolint:errcheck
	}
	var e *googleapi.Error
	if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
		return fp, false, nil
	}
	return fp, err == nil, errors.Wrapf(err, "writing manifest %s", name)
}

func (s *Store) readObj(ctx context.Context, name string) ([]byte, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(r)
	return buf.Bytes(), err
}

// writeObj writes an object if it does not exist, tolerating concurrent
// creation of the same content.
func (s *Store) writeObj(ctx context.Context, name string, data []byte) error {
	obj := s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	_, err := w.Write(data)
	if err == nil {
		err = w.Close()
	} else {
		w.Close() //nolint:errcheck
	}
	var e *googleapi.Error
	if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
		return nil
	}
	return errors.Wrapf(err, "writing object %s", name)
}

func payloadObjName(fp variome.Fingerprint) string {
	return "p:" + fp.String()
}

func chunkObjName(chunk []byte) string {
	sum := sha256.Sum256(chunk)
	return "c:" + hex.EncodeToString(sum[:])
}

// FromConfig constructs a Store from the "creds" and "bucket" parameters
// used by the offload backend.
func FromConfig(ctx context.Context, conf map[string]interface{}) (*Store, error) {
	creds, ok := conf["creds"].(string)
	if !ok {
		return nil, errors.New(`missing "creds" parameter`)
	}
	bucketName, ok := conf["bucket"].(string)
	if !ok {
		return nil, errors.New(`missing "bucket" parameter`)
	}
	c, err := storage.NewClient(ctx, option.WithCredentialsFile(creds))
	if err != nil {
		return nil, errors.Wrap(err, "creating cloud storage client")
	}
	return New(c.Bucket(bucketName)), nil
}
