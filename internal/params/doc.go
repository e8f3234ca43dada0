// Package params loads trained layer parameters.
//
// A parameter file is plain ASCII text holding whitespace-separated numbers
// with no header. The values are returned in file order; interpreting them
// (shape, layout) is left to the layer that asked for them.
//
// Files are resolved through an Opener:
//   - Local: the filesystem, relative paths resolved against a root directory
//   - GCS: gs://bucket/object URLs on Google Cloud Storage
//   - Mux: routes by URL scheme
//
// Example:
//
//	values, err := params.Load(ctx, params.Local{Root: "model"}, "0_conv1_weights")
package params
