package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит настройки приложения
type Config struct {
	RunAddr         string
	BaseURL         string
	RedisAddr       string
	MediaPath       string
	QRStream        string
	AnalyticsStream string
	QRGroup         string
	AnalyticsGroup  string
	ConsumerName    string
	CacheTTL        time.Duration
	RateLimit       int64
	RateWindow      time.Duration
	TSRetention     time.Duration
}

// NewConfig создает и возвращает новый объект Config с настройками по умолчанию,
// парсит флаги командной строки и применяет переменные окружения
func NewConfig() (*Config, error) {
	cfg := &Config{
		QRStream:        "qr_code_jobs",
		AnalyticsStream: "analytics_jobs",
		QRGroup:         "qr_code_processors",
		AnalyticsGroup:  "analytics_processors",
		CacheTTL:        30 * time.Second,
		RateLimit:       5,
		RateWindow:      60 * time.Second,
		TSRetention:     7 * 24 * time.Hour,
	}

	// Регистрируем флаги
	flagRunAddr := flag.String("a", ":8080", "address and port to run server")
	flagBaseURL := flag.String("b", "http://localhost:8080", "base URL for shortened links")
	flagRedisAddr := flag.String("r", "localhost:6379", "address of the Redis store")
	flagMediaPath := flag.String("m", "media", "directory for generated QR code images")
	flag.Parse()

	// Проверяем переменные окружения
	if addr := os.Getenv("RUN_ADDRESS"); addr != "" {
		cfg.RunAddr = addr
	} else {
		cfg.RunAddr = *flagRunAddr
	}

	if url := os.Getenv("BASE_URL"); url != "" {
		cfg.BaseURL = url
	} else {
		cfg.BaseURL = *flagBaseURL
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	} else {
		cfg.RedisAddr = *flagRedisAddr
	}

	if path := os.Getenv("MEDIA_PATH"); path != "" {
		cfg.MediaPath = path
	} else {
		cfg.MediaPath = *flagMediaPath
	}

	if stream := os.Getenv("QR_STREAM"); stream != "" {
		cfg.QRStream = stream
	}
	if stream := os.Getenv("ANALYTICS_STREAM"); stream != "" {
		cfg.AnalyticsStream = stream
	}
	if group := os.Getenv("QR_GROUP"); group != "" {
		cfg.QRGroup = group
	}
	if group := os.Getenv("ANALYTICS_GROUP"); group != "" {
		cfg.AnalyticsGroup = group
	}

	// Имя потребителя по умолчанию — имя хоста
	if name := os.Getenv("CONSUMER_NAME"); name != "" {
		cfg.ConsumerName = name
	} else {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "shortlink-worker"
		}
		cfg.ConsumerName = hostname
	}

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		seconds, err := strconv.ParseInt(ttl, 10, 64)
		if err != nil {
			return nil, err
		}
		cfg.CacheTTL = time.Duration(seconds) * time.Second
	}

	if limit := os.Getenv("RATE_LIMIT"); limit != "" {
		value, err := strconv.ParseInt(limit, 10, 64)
		if err != nil {
			return nil, err
		}
		cfg.RateLimit = value
	}

	if window := os.Getenv("RATE_WINDOW"); window != "" {
		seconds, err := strconv.ParseInt(window, 10, 64)
		if err != nil {
			return nil, err
		}
		cfg.RateWindow = time.Duration(seconds) * time.Second
	}

	if retention := os.Getenv("TS_RETENTION_MS"); retention != "" {
		ms, err := strconv.ParseInt(retention, 10, 64)
		if err != nil {
			return nil, err
		}
		cfg.TSRetention = time.Duration(ms) * time.Millisecond
	}

	// Валидация значений
	if !strings.Contains(cfg.RunAddr, ":") {
		cfg.RunAddr = ":" + cfg.RunAddr
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		cfg.BaseURL = "http://" + cfg.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MediaPath != "" {
		// Создаём директорию для изображений, если она не существует
		if err := os.MkdirAll(cfg.MediaPath, 0755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
