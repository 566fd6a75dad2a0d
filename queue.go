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

package jbproducts

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"

	"github.com/Volodya262/jb-products-info/config"
	redis_db "github.com/Volodya262/jb-products-info/internal/redis-db"
	"github.com/Volodya262/jb-products-info/model"
)

// BuildsPublisher publishes build-processing tasks for the workers.
type BuildsPublisher interface {
	PublishBuilds(ctx context.Context, builds []*model.BuildInProcess) error
}

// Queue publishes build-processing tasks to the durable task queue.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// BuildTaskPayload is the wire payload of one build-processing task.
type BuildTaskPayload struct {
	ProductCode     model.ProductCode `json:"product_code"`
	BuildFullNumber string            `json:"build_full_number"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// PublishBuilds enqueues one task per build. Tasks are keyed by the build
// identity so a build already waiting in the queue is not enqueued twice.
// Publish failures propagate: a task silently dropped here would leave its
// build stuck in Queued until the next expiry cycle.
func (q *Queue) PublishBuilds(ctx context.Context, builds []*model.BuildInProcess) error {
	for _, build := range builds {
		if err := q.publishBuild(ctx, build); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) publishBuild(ctx context.Context, build *model.BuildInProcess) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(BuildTaskPayload{
		ProductCode:     build.ProductCode,
		BuildFullNumber: build.BuildFullNumber,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to encode task payload for build %s", build.ID())
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(build.ID()),
		asynq.Queue(cfg.Queue.BuildsToProcessQueue),
	}
	task := asynq.NewTask(cfg.Queue.BuildsToProcessQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return errors.Wrapf(err, "failed to enqueue build %s", build.ID())
	}
	if err == nil {
		log.Printf(" [*] Successfully enqueued build: %+v %s", build.ID(), info.Queue)
	}
	return nil
}
