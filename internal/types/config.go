package types

type RunMode string

const (
	// ModeLocal is the mode for running both the API server and the event consumer locally
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server
	ModeAPI RunMode = "api"
	// ModeConsumer is the mode for running just the audit event consumer
	ModeConsumer RunMode = "consumer"
	// ModeAWSLambdaAPI serves the API from an AWS Lambda function
	ModeAWSLambdaAPI RunMode = "lambda_api"
	// ModeAWSLambdaConsumer handles audit events delivered by an MSK trigger
	ModeAWSLambdaConsumer RunMode = "lambda_consumer"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// StoreDriver selects the document store backing the collections
type StoreDriver string

const (
	StoreDriverMongo  StoreDriver = "mongo"
	StoreDriverMemory StoreDriver = "memory"
)

// CacheDriver selects the cache implementation
type CacheDriver string

const (
	CacheDriverMemory CacheDriver = "memory"
	CacheDriverRedis  CacheDriver = "redis"
)
