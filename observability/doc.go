// Package observability provides OpenTelemetry tracing and metrics for the
// diarization pipeline.
//
// Setup:
//
//	shutdown, err := observability.Init(ctx, "diarizerd", version, env, cfg.Telemetry)
//	defer shutdown(ctx)
//
// Stages:
//
//	ctx, stage := observability.StartStage(ctx, metrics, meetingID, "segmentation", "local")
//	defer stage.End(err)
//
// Health:
//
//	health := observability.NewServiceHealth("diarizerd", version)
//	health.AddComponent(observability.ProbeHealth(ctx, segmenter, 2*time.Second, true))
package observability
