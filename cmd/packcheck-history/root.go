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

package main

import (
	"errors"
	"strings"

	"github.com/google/packcheck/reportstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	dbFlagName = "db"
	envPrefix  = "PACKCHECK"

	defaultDB = "packcheck-history.db"
)

// app holds the state shared by the subcommands of one invocation.
type app struct {
	cfg *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: viper.New()}
	a.cfg.SetEnvPrefix(envPrefix)
	a.cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.cfg.AutomaticEnv()
	a.cfg.SetDefault(dbFlagName, defaultDB)

	cmd := &cobra.Command{
		Use:           "packcheck-history",
		Short:         "Browse saved packcheck scan reports",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().String(dbFlagName, defaultDB, "scan history database written by packcheck --history-db (env PACKCHECK_DB)")
	cobra.CheckErr(a.cfg.BindPFlag(dbFlagName, cmd.PersistentFlags().Lookup(dbFlagName)))

	cmd.AddCommand(a.newListCmd(), a.newShowCmd())
	return cmd
}

// withStore opens the history database for the duration of fn.
func (a *app) withStore(fn func(s *reportstore.Store) error) (err error) {
	s, err := reportstore.Open(a.cfg.GetString(dbFlagName))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(s)
}
