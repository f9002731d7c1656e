// Package main (in worker-subfolder) launches the async dehaze worker fed from Kafka
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/config"
	"github.com/UnendingLoop/Dehazer/internal/fetcher"
	"github.com/UnendingLoop/Dehazer/internal/imageproc"
	"github.com/UnendingLoop/Dehazer/internal/kafka"
	"github.com/UnendingLoop/Dehazer/internal/service"
	"github.com/UnendingLoop/Dehazer/internal/storage"
	"github.com/UnendingLoop/Dehazer/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	var files []string
	if _, err := os.Stat("./.env"); err == nil {
		files = append(files, "./.env")
	}
	appConfig, err := config.Load(files...)
	if err != nil {
		log.Fatalf("Failed to load config: %s\nExiting worker...", err)
	}
	if appConfig.Kafka.Broker == "" {
		log.Fatal("KAFKA_BROKER is required for the worker")
	}

	zlog.InitConsole()
	if err := zlog.SetLevel(appConfig.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключиться к хранилищу
	strg, err := storage.NewObjectStore(ctx, appConfig.Storage)
	if err != nil {
		log.Fatalf("Failed to init IMG-storage: %v", err)
	}
	storage.WaitReady(ctx, strg, 5, 3*time.Second)

	proc, err := imageproc.New(appConfig.Processor)
	if err != nil {
		log.Fatalf("Failed to init image processor: %v", err)
	}

	// ждем пока кафка раздуплится
	broker := appConfig.Kafka.Broker
	if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is not reachable: %v", err)
	}
	if err := kafka.InitKafkaTopics(ctx, broker, 10*time.Second, appConfig.Kafka.RequestTopic, appConfig.Kafka.Topic); err != nil {
		log.Fatalf("Failed to init Kafka topics: %v", err)
	}

	// воркер тоже публикует уведомления об обработанных картинках
	pub := wbfkafka.NewProducer([]string{broker}, appConfig.Kafka.Topic)

	var svc WorkerDehazeService = service.NewDehazeService(
		strg,
		fetcher.NewHTTPFetcher(appConfig.FetchTimeout, appConfig.MaxImageBytes),
		proc,
		service.NewBucketProvisioner(strg, strg.Bucket()),
		pub,
		appConfig.DerivedPrefix,
	)

	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	// временные сбои хранилища повторяем внутри воркера, потом коммитим и идем дальше
	dehazeRetry := retry.Strategy{
		Attempts: 3,
		Delay:    time.Second,
		Backoff:  2,
	}
	cons := wbfkafka.NewConsumer([]string{broker}, appConfig.Kafka.RequestTopic, appConfig.Kafka.GroupID)
	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	go worker.NewWorkerInstance(svc, queue, cons, appConfig.SamplePrefix, dehazeRetry).StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, pub)
	log.Println("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, pub *wbfkafka.Producer) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connections:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-producer:", err)
		return
	}
	log.Println("Kafka-producer connection closed.")
}
