// Package vad estimates horizontal wind profiles from Doppler radar PPI
// scans using the Velocity Azimuth Display technique (Browning & Wexler,
// 1968).
//
// Responsibilities: grouping observations into rings of constant range and
// elevation, per-ring quality control (coverage and azimuth gap), sinusoidal
// least-squares fitting with optional outlier rejection, beam height under
// the 4/3 effective Earth radius model, and the final R² gate.
// Key types: Observation, Row, Config, FitResult.
//
// Rejected rings are data, not errors: their wind fields are undefined
// NullFloat values while height, range and elevation stay populated.
//
// The u/v recovery assumes a horizontally uniform wind across the ring and
// ignores the vertical-motion contribution to radial velocity. No
// elevation-dependent correction for fall speed or vertical air motion is
// applied.
package vad
