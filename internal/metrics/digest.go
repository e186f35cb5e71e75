package metrics

// Metrics recorded by the digest pipeline.
var (
	MessagesSummarized = Collector.Counter("digestbot_messages_summarized_total", "Messages fed to the summarizer", "")
	MessagesIngested   = Collector.Counter("digestbot_messages_ingested_total", "Chat messages written by the collector", "")
	LLMRequestsTotal   = Collector.Counter("digestbot_llm_requests_total", "Total LLM completion requests", "")
	LLMErrorsTotal     = Collector.Counter("digestbot_llm_errors_total", "LLM completion requests that failed", "")
	RunInProgress      = Collector.Gauge("digestbot_run_in_progress", "1 while a digest run is executing", "")
	LastRunTimestamp   = Collector.Gauge("digestbot_last_run_timestamp_seconds", "Unix time the last digest run finished", "")

	SummarizeLatency = Collector.Histogram("digestbot_summarize_latency_seconds", "Summarization latency in seconds", "",
		[]float64{1, 5, 10, 30, 60, 120, 300})
)

// RunsTotal returns the run counter for one outcome label.
func RunsTotal(outcome string) *Counter {
	return Collector.Counter("digestbot_runs_total", "Digest runs by outcome", Labels("outcome", outcome))
}

// DeliveriesTotal returns the delivery counter for a platform and result.
func DeliveriesTotal(platform, result string) *Counter {
	return Collector.Counter("digestbot_deliveries_total", "Digest deliveries by platform and result",
		Labels("platform", platform, "result", result))
}
