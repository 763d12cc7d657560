package kafka

// Topic definitions for Kafka event streaming
const (
	// Risk events
	TopicRiskAlert     = "risk.alerts"
	TopicLiquidation   = "risk.liquidations"
	TopicOpportunities = "risk.opportunities"
)
