// Package integrations resolves where a scenario comes from: a directory of
// text files, a YAML bundle on disk or over HTTP, or the random generator.
package integrations

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"dronenav/internal/loader"
	"dronenav/internal/model"
	"dronenav/internal/scenario"
)

// Source yields one scenario. Fetch returns only scenarios that pass
// model.Scenario.Validate.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (model.Scenario, error)
}

// DirSource reads drones.txt, deliveries.txt and noflyzones.txt from Dir.
type DirSource struct {
	Dir string
}

func (s DirSource) Name() string { return "dir:" + s.Dir }

func (s DirSource) Fetch(ctx context.Context) (model.Scenario, error) {
	sc, err := loader.LoadDir(s.Dir)
	if err != nil {
		return sc, err
	}
	return sc, sc.Validate()
}

// BundleSource reads a single YAML document.
type BundleSource struct {
	Path string
}

func (s BundleSource) Name() string { return "bundle:" + s.Path }

func (s BundleSource) Fetch(ctx context.Context) (model.Scenario, error) {
	sc, err := loader.LoadBundle(s.Path)
	if err != nil {
		return sc, err
	}
	return sc, sc.Validate()
}

// HTTPSource downloads a YAML bundle, typically GET /v1/scenarios/{id} of
// another instance.
type HTTPSource struct {
	URL    string
	Header http.Header
	Client *http.Client
}

func (s HTTPSource) Name() string { return s.URL }

func (s HTTPSource) Fetch(ctx context.Context) (model.Scenario, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return model.Scenario{}, err
	}
	for k, vs := range s.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/yaml")
	c := s.Client
	if c == nil {
		c = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := c.Do(req)
	if err != nil {
		return model.Scenario{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.Scenario{}, fmt.Errorf("fetch %s: HTTP %d", s.URL, resp.StatusCode)
	}
	sc, err := loader.ReadBundle(resp.Body)
	if err != nil {
		return sc, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	return sc, sc.Validate()
}

// RandomSource generates a scenario. With Params nil the entity counts are
// drawn like the random runner does. Seed 0 uses the current time.
type RandomSource struct {
	Seed   int64
	Params *scenario.Params
}

func (s RandomSource) Name() string { return "random:" + strconv.FormatInt(s.Seed, 10) }

func (s RandomSource) Fetch(ctx context.Context) (model.Scenario, error) {
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	var p scenario.Params
	if s.Params != nil {
		p = *s.Params
	} else {
		p = scenario.RandomParams(rng)
	}
	sc := scenario.Generate(rng, p)
	return sc, sc.Validate()
}

// Open parses a source reference:
//
//	random | random:<seed>   generated scenario
//	http(s)://...            YAML bundle over HTTP
//	<dir>                    text files
//	<file>                   YAML bundle
func Open(ref string) (Source, error) {
	switch {
	case ref == "":
		return nil, fmt.Errorf("empty scenario source")
	case ref == "random":
		return RandomSource{}, nil
	case strings.HasPrefix(ref, "random:"):
		seed, err := strconv.ParseInt(strings.TrimPrefix(ref, "random:"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad seed in %q: %w", ref, err)
		}
		return RandomSource{Seed: seed}, nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return HTTPSource{URL: ref}, nil
	}
	fi, err := os.Stat(ref)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return DirSource{Dir: ref}, nil
	}
	return BundleSource{Path: ref}, nil
}
