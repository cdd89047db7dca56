// Package adamsleaf implements a Centralized Network Configuration
// controller for scheduling hard-real-time TSN streams and soft-real-time
// AVB streams over a shared switched network.
//
// Under the hood the controller is assembled from small, focused packages:
//
//	network/   — directed, weighted graph of the switched topology
//	yens/      — Yen's K-shortest-loopless-paths candidate route cache
//	gcl/       — gate control list / interval bookkeeping per hyperperiod
//	flowtable/ — append-only registry of TSN and AVB stream specs
//	solution/  — per-stream route selection state across a Configure run
//	scheduler/ — hop-by-hop, frame-by-frame TSN window placement
//	evaluator/ — cost/objective vector and worst-case-delay bound
//	algorithm/ — SPF, RO (GRASP) and ACO routing strategies
//	config/    — YAML configuration for the controller and its algorithm
//	cnc/       — orchestration: wires the above behind a Configure/Report API
//
// See cnc.New for the entry point; cnc/cnc_test.go drives a complete
// add-streams/Configure/Report run.
package adamsleaf
