// Package telemetry publishes link, bus, merge frame, pipeline and motor
// status as Typed protobuf packets.
//
// Topics are rooted at the node id:
//
//	<node>/meta                 NodeAnnounce, retained while connected
//	<node>/links/<name>         LinkStatus
//	<node>/rc                   RCSnapshot of the winning link
//	<node>/can/<bus>            BusStats
//	<node>/can/<bus>/<id>       MergeStatus
//	<node>/motors/<name>        MotorFeedback
//	<node>/pipelines/<name>     PipelineStats
package telemetry
