// Copyright 2025 The Enclos Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"enclos.dev/enclos/pkg/libos/fs"
	"enclos.dev/enclos/pkg/log"
	"enclos.dev/enclos/pkg/pal"
	"enclos.dev/enclos/pkg/pal/hostpal"
)

// config is the YAML file accepted by -config.
type config struct {
	Mount mountConfig `yaml:"mount"`
	Log   logConfig   `yaml:"log"`
}

type mountConfig struct {
	// Filesystem is the backend name, "chroot" if empty.
	Filesystem string `yaml:"filesystem"`

	// URI is the mount root, e.g. "file:/srv/data".
	URI string `yaml:"uri"`
}

type logConfig struct {
	// Level is one of "warning", "info", "debug". Empty keeps the default.
	Level string `yaml:"level"`
}

// loadConfig assembles the effective config from -config and -root.
func loadConfig() (*config, error) {
	var c config
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", *configPath, err)
		}
	} else if *rootPath != "" {
		c.Mount.URI = string(pal.MakeURI(pal.SchemeFile, *rootPath))
	} else {
		return nil, fmt.Errorf("one of -config or -root is required")
	}

	if c.Mount.Filesystem == "" {
		c.Mount.Filesystem = "chroot"
	}
	if c.Mount.URI == "" {
		return nil, fmt.Errorf("mount.uri is required")
	}

	switch c.Log.Level {
	case "":
	case "warning":
		log.SetLevel(log.Warning)
	case "info":
		log.SetLevel(log.Info)
	case "debug":
		log.SetLevel(log.Debug)
	default:
		return nil, fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	return &c, nil
}

// buildTree mounts the configured filesystem over the host PAL.
func (c *config) buildTree() (*fs.Tree, error) {
	fsys, ok := fs.Find(c.Mount.Filesystem)
	if !ok {
		return nil, fmt.Errorf("unknown filesystem %q", c.Mount.Filesystem)
	}
	m, err := fs.NewMount(fsys, hostpal.New(), pal.URI(c.Mount.URI))
	if err != nil {
		return nil, fmt.Errorf("mounting %q: %w", c.Mount.URI, err)
	}
	return fs.NewTree(m), nil
}

// mountTree is the common entry point of every subcommand.
func mountTree() (*fs.Tree, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return c.buildTree()
}
