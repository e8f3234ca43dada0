// Package loader assembles inference pipelines from model descriptions.
//
// A model description is a YAML file listing layers in pipeline order, each
// with its type and hyperparameters:
//
//	name: mnist
//	layers:
//	  - type: conv2d
//	    hparams:
//	      kernel_h: "5"
//	      kernel_w: "5"
//	      in_channels: "1"
//	      out_channels: "32"
//	      weights: model/0_conv1_weights
//	      biases: model/1_conv1_biases
//	  - type: relu
//	  - type: maxpool2d
//
// Relative parameter paths resolve against the directory holding the
// description file.
//
// Example:
//
//	model, err := loader.OpenModel(ctx, "mnist.yaml")
//	if err != nil {
//	    return err
//	}
//	out, err := model.Pipeline.Forward(input)
package loader
