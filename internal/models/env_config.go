package models

import (
	"fmt"
	"os"
	"strconv"
)

type EnvConfig struct {
	DatabaseURL     string
	Port            string
	IngestToken     string
	NotifsPerMinute int
	Debug           bool
}

func ReadEnvConfig() EnvConfig {
	debug := os.Getenv("HOJO_DEBUG") == "true"
	port := os.Getenv("HOJO_PORT")
	if port == "" {
		port = "8711"
	}
	notifsPerMinute, err := strconv.Atoi(os.Getenv("HOJO_NOTIFS_PER_MINUTE"))
	if err != nil {
		fmt.Println("Using default value for HOJO_NOTIFS_PER_MINUTE")
		notifsPerMinute = 60
	}
	return EnvConfig{
		DatabaseURL:     os.Getenv("HOJO_DATABASE_URL"),
		Port:            port,
		IngestToken:     os.Getenv("HOJO_INGEST_TOKEN"),
		NotifsPerMinute: notifsPerMinute,
		Debug:           debug,
	}
}
