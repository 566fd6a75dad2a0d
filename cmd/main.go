/*
Copyright 2024 JB Products Info Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	jbproducts "github.com/Volodya262/jb-products-info"
	"github.com/Volodya262/jb-products-info/config"
	"github.com/Volodya262/jb-products-info/database"
)

// JBInfo represents the CLI application, encapsulating the root Cobra command.
type JBInfo struct {
	cmd *cobra.Command
}

// jbinfoInstance holds the service instance and its configuration, shared by
// all subcommands.
type jbinfoInstance struct {
	info *jbproducts.ProductsInfo
	cnf  *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the service instance
// before running any command.
func preRun(app *jbinfoInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newInfo, err := setupService(cnf)
		if err != nil {
			log.Fatal(err)
		}

		app.info = newInfo
		app.cnf = cnf

		return nil
	}
}

// setupService creates and initializes a new service instance based on the
// provided configuration.
func setupService(cfg *config.Configuration) (*jbproducts.ProductsInfo, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newInfo, err := jbproducts.NewProductsInfo(db)
	if err != nil {
		return nil, fmt.Errorf("error creating service: %v", err)
	}
	return newInfo, nil
}

// NewCLI creates the command-line interface for the application.
func NewCLI() *JBInfo {
	var configFile string
	b := &jbinfoInstance{}

	var rootCmd = &cobra.Command{
		Use:   "jbinfo",
		Short: "JetBrains products build info service",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./jbinfo.json", "Configuration file for the service")

	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &JBInfo{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during
// execution.
func (w JBInfo) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
