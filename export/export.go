// Package export saves fetched city record sets to a blobstore.Store and
// loads them back for clustering.
//
// Files are named cities-<n>.json, plus the compression suffix (.zst, .lz4)
// when one is configured. Records are stored in their slim projection.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/geocluster/blobstore"
	"github.com/hupe1980/geocluster/codec"
	"github.com/hupe1980/geocluster/compress"
	"github.com/hupe1980/geocluster/logging"
	"github.com/hupe1980/geocluster/model"
	"github.com/hupe1980/geocluster/resource"
)

const (
	filePrefix = "cities-"
	fileExt    = ".json"
)

// ErrNoExports is returned by Latest when the store holds no export.
var ErrNoExports = errors.New("export: no record sets found")

// FileName returns the file name for a set of n records.
func FileName(n int, c compress.Type) string {
	return filePrefix + strconv.Itoa(n) + fileExt + c.Suffix()
}

// Entry describes one export found in a store.
type Entry struct {
	Name        string
	Records     int
	Compression compress.Type
}

// ParseName parses an export file name. ok is false for foreign files.
func ParseName(name string) (Entry, bool) {
	base := path.Base(name)
	c := compress.FromPath(base)
	rest := strings.TrimSuffix(base, c.Suffix())

	rest, ok := strings.CutPrefix(rest, filePrefix)
	if !ok {
		return Entry{}, false
	}
	rest, ok = strings.CutSuffix(rest, fileExt)
	if !ok {
		return Entry{}, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return Entry{}, false
	}
	return Entry{Name: name, Records: n, Compression: c}, true
}

type options struct {
	codec       codec.Codec
	compression compress.Type
	dir         string
	indent      bool
	controller  *resource.Controller
	logger      *logging.Logger
}

// Option configures a Writer or Reader.
type Option func(*options)

// WithCodec sets the JSON codec used for writing.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithCompression sets the compression of written files.
func WithCompression(c compress.Type) Option {
	return func(o *options) { o.compression = c }
}

// WithDir places files under dir inside the store.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithIndent pretty-prints written JSON with two-space indentation.
func WithIndent(indent bool) Option {
	return func(o *options) { o.indent = indent }
}

// WithController throttles store IO through the controller's IO limit.
func WithController(rc *resource.Controller) Option {
	return func(o *options) { o.controller = rc }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) options {
	o := options{codec: codec.Default}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = codec.Default
	}
	o.logger = logging.OrNoop(o.logger).WithComponent("export")
	return o
}

func (o *options) path(name string) string {
	if o.dir == "" {
		return name
	}
	return path.Join(o.dir, name)
}

// Writer saves record sets.
type Writer struct {
	store blobstore.Store
	opts  options
}

// NewWriter creates a Writer over store.
func NewWriter(store blobstore.Store, opts ...Option) *Writer {
	return &Writer{store: store, opts: applyOptions(opts)}
}

// Save writes cities in slim form and returns the stored name.
func (w *Writer) Save(ctx context.Context, cities []model.City) (string, error) {
	slim := model.SlimAll(cities)
	if slim == nil {
		slim = []model.Slim{}
	}

	var (
		data []byte
		err  error
	)
	if ind, ok := w.opts.codec.(codec.Indenter); ok && w.opts.indent {
		data, err = ind.MarshalIndent(slim, "", "  ")
	} else {
		data, err = w.opts.codec.Marshal(slim)
	}
	if err != nil {
		return "", fmt.Errorf("export: encode: %w", err)
	}

	data, err = compress.Compress(w.opts.compression, data)
	if err != nil {
		return "", fmt.Errorf("export: compress: %w", err)
	}

	var buf bytes.Buffer
	if _, err := resource.NewRateLimitedWriter(ctx, &buf, w.opts.controller).Write(data); err != nil {
		return "", err
	}

	name := w.opts.path(FileName(len(slim), w.opts.compression))
	if err := w.store.Put(ctx, name, buf.Bytes()); err != nil {
		return "", fmt.Errorf("export: put %s: %w", name, err)
	}

	w.opts.logger.InfoContext(ctx, "record set saved",
		"name", name,
		"records", len(slim),
		"bytes", buf.Len(),
		"codec", w.opts.codec.Name(),
		"compression", w.opts.compression.String(),
	)
	return name, nil
}

// Reader loads record sets.
type Reader struct {
	store blobstore.Store
	opts  options
}

// NewReader creates a Reader over store.
func NewReader(store blobstore.Store, opts ...Option) *Reader {
	return &Reader{store: store, opts: applyOptions(opts)}
}

// Load reads a stored record set. The compression is inferred from the name,
// and both a bare array and a {"data": [...]} envelope are accepted.
func (r *Reader) Load(ctx context.Context, name string) ([]model.City, error) {
	raw, err := r.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("export: get %s: %w", name, err)
	}

	raw, err = io.ReadAll(resource.NewRateLimitedReader(ctx, bytes.NewReader(raw), r.opts.controller))
	if err != nil {
		return nil, err
	}

	data, err := compress.Decompress(compress.FromPath(name), raw)
	if err != nil {
		return nil, fmt.Errorf("export: decompress %s: %w", name, err)
	}

	cities, err := model.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("export: decode %s: %w", name, err)
	}

	r.opts.logger.DebugContext(ctx, "record set loaded", "name", name, "records", len(cities))
	return cities, nil
}

// List returns the exports under the configured directory, largest first.
func (r *Reader) List(ctx context.Context) ([]Entry, error) {
	prefix := filePrefix
	if r.opts.dir != "" {
		prefix = path.Join(r.opts.dir, filePrefix)
	}

	names, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, name := range names {
		if e, ok := ParseName(name); ok {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Records != entries[j].Records {
			return entries[i].Records > entries[j].Records
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Latest returns the largest export.
func (r *Reader) Latest(ctx context.Context) (Entry, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNoExports
	}
	return entries[0], nil
}
