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
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	jbproducts "github.com/Volodya262/jb-products-info"
	"github.com/Volodya262/jb-products-info/config"
	redis_db "github.com/Volodya262/jb-products-info/internal/redis-db"
)

// scheduledRefreshTask is the task type the scheduler enqueues on every cron
// tick to trigger a full refresh cycle.
const scheduledRefreshTask = "scheduled_refresh"

// scheduledQueue carries refresh triggers, separate from the builds queue so
// a backlog of slow downloads never delays the next reconciliation.
const scheduledQueue = "scheduled"

// processBuild handles one build task from the queue. Returning an error
// makes asynq redeliver the task after the configured nack delay; returning
// nil acknowledges it. Non-retryable processing failures are recorded in the
// build's event history and acknowledged. A payload that fails to decode is
// also nacked for redelivery: a corrupted delivery may still decode fine the
// next time around.
func (b *jbinfoInstance) processBuild(ctx context.Context, t *asynq.Task) error {
	var payload jbproducts.BuildTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return fmt.Errorf("failed to decode task payload, requeueing: %v", err)
	}

	ack, err := b.info.ProcessBuild(ctx, payload.ProductCode, payload.BuildFullNumber)
	if err != nil {
		logrus.Errorf("Failed to process build %s:%s: %v", payload.ProductCode, payload.BuildFullNumber, err)
		return err
	}
	if !ack {
		return fmt.Errorf("build %s:%s failed transiently, requeueing", payload.ProductCode, payload.BuildFullNumber)
	}

	log.Println(" [*] Build processed", payload.ProductCode, payload.BuildFullNumber)
	return nil
}

// runScheduledRefresh handles the cron-triggered refresh task. An already
// running refresh is not an error; the trigger is simply dropped.
func (b *jbinfoInstance) runScheduledRefresh(ctx context.Context, _ *asynq.Task) error {
	queued, err := b.info.RunExclusiveRefresh(ctx, "")
	if err != nil {
		if err == jbproducts.ErrRefreshInProgress {
			logrus.Info("Skipping scheduled refresh, previous one still running")
			return nil
		}
		logrus.Errorf("Scheduled refresh failed: %v", err)
		return err
	}

	log.Printf(" [*] Refresh cycle done, %d builds queued", len(queued))
	return nil
}

func initializeQueues(conf *config.Configuration) map[string]int {
	queues := make(map[string]int)
	queues[conf.Queue.BuildsToProcessQueue] = 3
	queues[scheduledQueue] = 1
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	nackDelay := time.Duration(conf.Queue.NackDelaySeconds) * time.Second
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOption.Addr,
			Password: redisOption.Password,
			DB:       redisOption.DB,
		},
		asynq.Config{
			Concurrency: conf.Queue.Concurrency,
			Queues:      queues,
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				return nackDelay
			},
		},
	), nil
}

func initializeTaskHandlers(b *jbinfoInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(b.cnf.Queue.BuildsToProcessQueue, b.processBuild)
	mux.HandleFunc(scheduledRefreshTask, b.runScheduledRefresh)
}

// initializeScheduler registers the periodic refresh trigger with the
// configured cron spec.
func initializeScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisOption.Addr,
			Password: redisOption.Password,
			DB:       redisOption.DB,
		},
		&asynq.SchedulerOpts{},
	)

	_, err = scheduler.Register(
		conf.Processing.ScheduleCronSpec,
		asynq.NewTask(scheduledRefreshTask, nil),
		asynq.Queue(scheduledQueue),
	)
	if err != nil {
		return nil, fmt.Errorf("error registering refresh schedule: %v", err)
	}
	return scheduler, nil
}

// workerCommands defines the "workers" command that runs the build processor
// consumers, the refresh scheduler and the queue monitoring UI.
func workerCommands(b *jbinfoInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start build processing workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			queues := initializeQueues(conf)

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			scheduler, err := initializeScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}
			go func() {
				if err := scheduler.Run(); err != nil {
					log.Fatalf("could not run scheduler: %v", err)
				}
			}()

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:     redisOption.Addr,
					Password: redisOption.Password,
					DB:       redisOption.DB,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
