package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"

	"github.com/djeday123/goml-sentiment/core"
)

// LoadOptions controls LoadDirectory.
type LoadOptions struct {
	// ClassNames restricts loading to these subdirectories. Empty means every
	// subdirectory. Labels follow the sorted class names either way.
	ClassNames []string
	// Extension of example files. Default ".txt".
	Extension string
	// Workers bounds concurrent file reads. Default 8.
	Workers int
}

type fileRef struct {
	path  string
	label Label
}

// LoadDirectory reads a split laid out as dir/<class>/<example>.txt, one
// review per file. Classes are sorted by name and numbered from 0; exactly two
// are required. Files are read concurrently but returned in (class, name)
// order.
func LoadDirectory(ctx context.Context, dir string, opts LoadOptions) (*Corpus, error) {
	if opts.Extension == "" {
		opts.Extension = ".txt"
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}

	classes, err := listClasses(dir, opts.ClassNames)
	if err != nil {
		return nil, err
	}
	if len(classes) != 2 {
		return nil, core.NewDataError("%s: found %d classes %v, want exactly 2", dir, len(classes), classes)
	}

	var refs []fileRef
	for label, class := range classes {
		entries, err := os.ReadDir(filepath.Join(dir, class))
		if err != nil {
			return nil, &core.DataError{Reason: "listing class " + class, Err: err}
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), opts.Extension) {
				continue
			}
			refs = append(refs, fileRef{
				path:  filepath.Join(dir, class, e.Name()),
				label: Label(label),
			})
		}
	}
	if len(refs) == 0 {
		return nil, core.NewDataError("%s: no %s files", dir, opts.Extension)
	}

	examples := make([]Example, len(refs))
	p := pool.New().WithMaxGoroutines(opts.Workers).WithContext(ctx).WithCancelOnError()
	for i, ref := range refs {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(ref.path)
			if err != nil {
				return &core.DataError{Reason: "reading " + ref.path, Err: err}
			}
			examples[i] = Example{Text: string(raw), Label: ref.label}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	return &Corpus{Examples: examples, ClassNames: classes}, nil
}

func listClasses(dir string, only []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &core.DataError{Reason: "listing " + dir, Err: err}
	}
	dirs := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), e.IsDir()
	})
	if len(only) > 0 {
		for _, name := range only {
			if !slices.Contains(dirs, name) {
				return nil, core.NewDataError("%s: class directory %q not found", dir, name)
			}
		}
		dirs = lo.Uniq(only)
	}
	slices.Sort(dirs)
	return dirs, nil
}

// String renders class names with their labels, e.g. "0=neg 1=pos".
func (c *Corpus) String() string {
	parts := make([]string, len(c.ClassNames))
	for i, name := range c.ClassNames {
		parts[i] = fmt.Sprintf("%d=%s", i, name)
	}
	return strings.Join(parts, " ")
}
