package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	MongoURI      string
	DBName        string
	Port          string
	RedisAddr     string
	SerpAPIKey    string
	GeminiAPIKey  string
	GeminiModel   string
	SegmenterURL  string
	AWSRegion     string
	AWSBucketName string
	LogMode       string
)

// LoadConfig loads environment variables from .env file
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	MongoURI = os.Getenv("MONGO_URI")
	if MongoURI == "" {
		MongoURI = "mongodb://localhost:27017/"
	}

	DBName = os.Getenv("DB_NAME")
	if DBName == "" {
		DBName = "seeclickbuy"
	}

	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "8080"
	}

	RedisAddr = os.Getenv("REDIS_ADDR")
	if RedisAddr == "" {
		RedisAddr = "localhost:6379"
	}

	SerpAPIKey = os.Getenv("SERP_API_KEY")
	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	GeminiModel = os.Getenv("GEMINI_MODEL")
	if GeminiModel == "" {
		GeminiModel = "gemini-1.5-flash"
	}

	SegmenterURL = os.Getenv("SEGMENTER_URL")
	if SegmenterURL == "" {
		SegmenterURL = "http://localhost:9090"
	}

	AWSRegion = os.Getenv("AWS_REGION")
	if AWSRegion == "" {
		AWSRegion = "us-east-1"
	}

	AWSBucketName = os.Getenv("AWS_BUCKET_NAME")

	LogMode = os.Getenv("LOG_MODE")
	if LogMode == "" {
		LogMode = "dev"
	}
}
