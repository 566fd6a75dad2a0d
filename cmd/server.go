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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Volodya262/jb-products-info/api"
)

func initializeRouter(b *jbinfoInstance) (*gin.Engine, error) {
	a, err := api.NewAPI(b.info)
	if err != nil {
		return nil, err
	}
	return a.Router(), nil
}

// serverCommands defines the "start" command that serves the HTTP API.
func serverCommands(b *jbinfoInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the http api server",
		Run: func(cmd *cobra.Command, args []string) {
			router, err := initializeRouter(b)
			if err != nil {
				log.Fatalf("Failed to initialize router: %v", err)
			}

			server := &http.Server{
				Addr:         fmt.Sprintf(":%s", b.cnf.Server.Port),
				Handler:      router,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			log.Printf("Starting server on %s", b.cnf.Server.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		},
	}

	return cmd
}
