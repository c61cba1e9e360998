package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Transport       Category = "Transport"
	Registry        Category = "Registry"
	Dispatch        Category = "Dispatch"
	RabbitMQ        Category = "RabbitMQ"
	Mongo           Category = "Mongo"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Transport
	Handshake  SubCategory = "Handshake"
	Disconnect SubCategory = "Disconnect"

	// Dispatch
	FanOut SubCategory = "FanOut"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ConnectionID ExtraKey = "ConnectionId"
	UserID       ExtraKey = "UserId"
	RoomID       ExtraKey = "RoomId"
	EventName    ExtraKey = "EventName"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
)
