package rekognition

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// Label is one ranked detection. Parents carries the category chain
// Rekognition reports ("Food", "Fruit", ...), joined per label.
type Label struct {
	Name       string
	Confidence float64
	Parents    []string
}

type IRekognition interface {
	DetectLabels(ctx context.Context, imageBytes []byte) ([]Label, error)
}

type rekognitionClient struct {
	client *rekognition.Client
}

func New() (IRekognition, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		return nil, errors.New("AWS_REGION is required for rekognition")
	}

	cfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithRegion(region),
	)
	if err != nil {
		return nil, err
	}

	return &rekognitionClient{client: rekognition.NewFromConfig(cfg)}, nil
}

func (r *rekognitionClient) DetectLabels(ctx context.Context, imageBytes []byte) ([]Label, error) {
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: imageBytes},
		MaxLabels:     aws.Int32(5),
		MinConfidence: aws.Float32(55),
	})
	if err != nil {
		return nil, err
	}

	labels := make([]Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}

		label := Label{Name: *l.Name}
		if l.Confidence != nil {
			label.Confidence = float64(*l.Confidence) / 100
		}
		for _, p := range l.Parents {
			if p.Name != nil {
				label.Parents = append(label.Parents, *p.Name)
			}
		}

		labels = append(labels, label)
	}

	return labels, nil
}
