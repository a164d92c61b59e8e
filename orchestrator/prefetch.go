// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"context"

	"github.com/google/packcheck/archive"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type opened struct {
	a   archive.Archive
	err error
}

// prefetcher opens requested package files ahead of the scan. At most
// lookahead files are open but not yet consumed at any time. Consumption
// stays strictly in request order.
type prefetcher struct {
	cancel  context.CancelFunc
	g       *errgroup.Group
	slots   chan struct{}
	results []chan opened
	done    chan struct{}
	next    int
}

func newPrefetcher(ctx context.Context, p archive.Provider, refs []string, lookahead int) *prefetcher {
	if lookahead < 1 {
		lookahead = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	f := &prefetcher{
		cancel:  cancel,
		g:       g,
		slots:   make(chan struct{}, lookahead),
		results: make([]chan opened, len(refs)),
		done:    make(chan struct{}),
	}
	for i := range f.results {
		f.results[i] = make(chan opened, 1)
	}
	go func() {
		defer close(f.done)
		for i, ref := range refs {
			select {
			case f.slots <- struct{}{}:
			case <-ctx.Done():
				return
			}
			g.Go(func() error {
				a, err := p.Open(ctx, ref)
				f.results[i] <- opened{a: a, err: err}
				return nil
			})
		}
	}()
	return f
}

// take returns the next package in request order.
func (f *prefetcher) take(ctx context.Context) (archive.Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case r := <-f.results[f.next]:
		f.next++
		<-f.slots
		return r.a, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// close stops prefetching and closes the archives that were opened but never
// taken.
func (f *prefetcher) close() error {
	f.cancel()
	<-f.done
	_ = f.g.Wait()
	var err error
	for _, ch := range f.results[f.next:] {
		select {
		case r := <-ch:
			if r.a != nil {
				multierr.AppendInto(&err, r.a.Close())
			}
		default:
		}
	}
	return err
}
