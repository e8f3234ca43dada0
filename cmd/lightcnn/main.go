// Package main provides the light-cnn command line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/jimbozhang/light-cnn/internal/loader"
	"github.com/jimbozhang/light-cnn/internal/mnist"
	"github.com/jimbozhang/light-cnn/internal/params"
	"github.com/jimbozhang/light-cnn/internal/tensor"
)

const version = "v0.1.0"

const usage = `light-cnn %s

Usage:
  lightcnn [klog flags] <command> [flags]

Commands:
  version    Show version
  infer      Run one input tensor through a model
  eval       Measure a model's error rate on MNIST idx files
`

func main() {
	ctx := context.Background()
	err := run(ctx, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	klog.InitFlags(nil)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, version)
	}
	flag.Parse()
	defer klog.Flush()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return nil
	}

	gcs := &lazyGCS{}
	defer gcs.Close()

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "light-cnn %s\n", version)
		return nil
	case "infer":
		return runInfer(ctx, stdout, gcs, args[1:])
	case "eval":
		return runEval(ctx, stdout, gcs, args[1:])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// openers returns one opener for model parameters, rooted at the model
// description's directory, and one for data files given on the command line.
func openers(modelPath string, gcs *lazyGCS) (model, data params.Opener) {
	m := params.NewMux(params.Local{Root: filepath.Dir(modelPath)})
	m.Handle("gs", gcs)
	d := params.NewMux(params.Local{})
	d.Handle("gs", gcs)
	return m, d
}

func runInfer(ctx context.Context, stdout io.Writer, gcs *lazyGCS, args []string) error {
	fs := flag.NewFlagSet("infer", flag.ContinueOnError)
	modelPath := fs.String("model", "", "path to the model description (YAML)")
	inputPath := fs.String("input", "", "whitespace-separated input tensor values")
	shapeText := fs.String("shape", "1,28,28,1", "input tensor shape")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modelPath == "" || *inputPath == "" {
		return errors.New("infer: -model and -input are required")
	}

	shape, err := tensor.ParseShape(*shapeText)
	if err != nil {
		return fmt.Errorf("infer: %w", err)
	}

	modelOpener, dataOpener := openers(*modelPath, gcs)
	model, err := loader.OpenModel(ctx, *modelPath, loader.WithOpener(modelOpener))
	if err != nil {
		return err
	}

	values, err := params.Load(ctx, dataOpener, *inputPath)
	if err != nil {
		return err
	}
	input, err := tensor.FromSlice(values, shape)
	if err != nil {
		return fmt.Errorf("infer: input: %w", err)
	}

	out, err := model.Pipeline.Forward(input)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%v\n%v\n", out, out.Data())
	if out.Rank() == 2 {
		classes, err := mnist.Argmax(out)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "argmax: %v\n", classes)
	}
	return nil
}

func runEval(ctx context.Context, stdout io.Writer, gcs *lazyGCS, args []string) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	modelPath := fs.String("model", "", "path to the model description (YAML)")
	imagesPath := fs.String("images", "t10k-images-idx3-ubyte.gz", "MNIST idx3 image file")
	labelsPath := fs.String("labels", "t10k-labels-idx1-ubyte.gz", "MNIST idx1 label file")
	count := fs.Int("count", 0, "number of test examples (0 for all)")
	batch := fs.Int("batch", 64, "examples per forward pass")
	workers := fs.Int("workers", 0, "concurrent forward passes (0 for one per CPU)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modelPath == "" {
		return errors.New("eval: -model is required")
	}
	if *batch <= 0 {
		return fmt.Errorf("eval: -batch must be positive, got %d", *batch)
	}

	log := klog.FromContext(ctx)

	modelOpener, dataOpener := openers(*modelPath, gcs)
	opts := []loader.Option{loader.WithOpener(modelOpener)}
	if *workers > 0 {
		opts = append(opts, loader.WithWorkers(*workers))
	}
	model, err := loader.OpenModel(ctx, *modelPath, opts...)
	if err != nil {
		return err
	}

	images, err := readData(ctx, dataOpener, *imagesPath, func(r io.Reader) (*tensor.Tensor, error) {
		return mnist.ReadImages(r, *count)
	})
	if err != nil {
		return err
	}
	labels, err := readData(ctx, dataOpener, *labelsPath, func(r io.Reader) ([]int, error) {
		return mnist.ReadLabels(r, *count)
	})
	if err != nil {
		return err
	}
	n := images.Dim(0)
	if len(labels) != n {
		return fmt.Errorf("eval: %d images but %d labels", n, len(labels))
	}

	var batches []*tensor.Tensor
	for start := 0; start < n; start += *batch {
		b, err := images.Slice(start, min(start+*batch, n))
		if err != nil {
			return err
		}
		batches = append(batches, b)
	}

	began := time.Now()
	outs, err := model.Pipeline.ForwardBatch(ctx, batches)
	if err != nil {
		return err
	}
	log.Info("evaluated", "examples", n, "batches", len(batches), "elapsed", time.Since(began))

	predictions := make([]int, 0, n)
	for _, out := range outs {
		p, err := mnist.Argmax(out)
		if err != nil {
			return err
		}
		predictions = append(predictions, p...)
	}

	rate, err := mnist.ErrorRate(predictions, labels)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Test error: %.1f%%\n", rate)
	return nil
}

func readData[T any](ctx context.Context, o params.Opener, path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := o.Open(ctx, path)
	if err != nil {
		return zero, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	v, err := decode(f)
	if err != nil {
		return zero, fmt.Errorf("reading %q: %w", path, err)
	}
	return v, nil
}

// lazyGCS creates the storage client on first use so that purely local runs
// never need Google Cloud credentials.
type lazyGCS struct {
	once   sync.Once
	client *params.GCS
	err    error
}

func (l *lazyGCS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	l.once.Do(func() {
		l.client, l.err = params.NewGCS(ctx)
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.client.Open(ctx, path)
}

func (l *lazyGCS) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
