package main

import (
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/monpay/relayer/adapters/events"
	ethgateway "github.com/monpay/relayer/adapters/gateway"
	"github.com/monpay/relayer/adapters/store"
	"github.com/monpay/relayer/config"
	"github.com/monpay/relayer/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setLogLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connected")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	ethClient, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to dial rpc endpoint")
	}
	defer ethClient.Close()

	relayerKey, err := gethcrypto.HexToECDSA(cfg.RelayerPrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid relayer private key")
	}

	gw, err := ethgateway.NewEthGateway(ethClient, relayerKey, ethgateway.Config{
		ChainID:              big.NewInt(cfg.ChainID),
		ForwarderContract:    common.HexToAddress(cfg.ForwarderContract),
		SubscriptionContract: common.HexToAddress(cfg.SubscriptionContract),
		ReceiptTimeout:       cfg.ReceiptTimeout(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create execution gateway")
	}

	records := store.NewPostgresTransactionStore(db)
	subs := store.NewPostgresSubscriptionStore(db)
	eventPub := events.NewWatermillPublisher(publisher)

	relayService := service.NewRelayService(gw, records, eventPub)

	scheduler := service.NewRenewalScheduler(subs, relayService, gw, cfg.RenewalInterval())
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Int64("chainId", cfg.ChainID).Msg("monpayd running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
