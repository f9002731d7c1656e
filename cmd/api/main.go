// Package main (in api-subfolder) launches the dehaze processing endpoint
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/config"
	"github.com/UnendingLoop/Dehazer/internal/fetcher"
	"github.com/UnendingLoop/Dehazer/internal/imageproc"
	"github.com/UnendingLoop/Dehazer/internal/kafka"
	"github.com/UnendingLoop/Dehazer/internal/mwlogger"
	"github.com/UnendingLoop/Dehazer/internal/service"
	"github.com/UnendingLoop/Dehazer/internal/storage"
	"github.com/UnendingLoop/Dehazer/internal/transport"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig, err := config.Load(envFiles("./.env")...)
	if err != nil {
		log.Fatalf("Failed to load config: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(appConfig.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключиться к хранилищу
	strg, err := storage.NewObjectStore(ctx, appConfig.Storage)
	if err != nil {
		log.Fatalf("Failed to init IMG-storage: %v", err)
	}
	storage.WaitReady(ctx, strg, 5, 3*time.Second)

	// бакет создаем на старте; если хранилище еще не поднялось - досоздадим на первом запросе
	prov := service.NewBucketProvisioner(strg, strg.Bucket())
	if err := prov.Provision(ctx); err != nil {
		zlog.Logger.Warn().Err(err).Str("bucket", strg.Bucket()).Msg("Bucket provisioning postponed")
	}

	proc, err := imageproc.New(appConfig.Processor)
	if err != nil {
		log.Fatalf("Failed to init image processor: %v", err)
	}
	zlog.Logger.Info().Str("processor", proc.Name()).Msg("Image processor selected")

	pub := connectPublisher(ctx, appConfig.Kafka)
	var events service.EventPublisher
	if pub != nil {
		events = pub
	}

	// создаем экземпляр сервиса
	svc := service.NewDehazeService(
		strg,
		fetcher.NewHTTPFetcher(appConfig.FetchTimeout, appConfig.MaxImageBytes),
		proc,
		prov,
		events,
		appConfig.DerivedPrefix,
	)

	// cоздаем экземпляр хендлера HTTP
	var dehazer ProcessingService = svc
	handlers := transport.NewDehazeHandler(dehazer, appConfig.SamplePrefix, appConfig.SampleCount)
	// сетапим сервер
	engine := transport.NewRouter(appConfig.GinMode, handlers)

	srv := &http.Server{
		Addr:              ":" + appConfig.AppPort,
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия сервера и кафки
	<-ctx.Done()

	shutdown(srv, pub)
	log.Println("Exiting app...")
}

// envFiles оставляет только существующие файлы: в контейнере .env обычно нет
func envFiles(paths ...string) []string {
	res := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			res = append(res, p)
		}
	}
	return res
}

// connectPublisher returns nil when Kafka is not configured; the service then uses a no-op publisher.
func connectPublisher(ctx context.Context, cfg config.KafkaConfig) *wbfkafka.Producer {
	if cfg.Broker == "" {
		log.Println("KAFKA_BROKER is empty, processed-events are disabled")
		return nil
	}

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, cfg.Broker, 5*time.Second); err != nil {
		log.Printf("Kafka is not reachable: %v", err)
		return nil
	}
	if err := kafka.InitKafkaTopics(ctx, cfg.Broker, 10*time.Second, cfg.Topic); err != nil {
		log.Printf("Failed to init Kafka topics: %v", err)
		return nil
	}
	return wbfkafka.NewProducer([]string{cfg.Broker}, cfg.Topic)
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Println("Failed to shutdown server correctly:", err)
	}

	if pub == nil {
		return
	}
	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-producer:", err)
		return
	}
	log.Println("Kafka-producer connection closed.")
}
