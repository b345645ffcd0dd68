package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/starford/gebo/internal/blob"
)

// Transcriber extracts speech from videos: ffmpeg pulls the audio track
// as FLAC, the audio is staged in the blob store, and a long-running
// recognition job on the speech service turns it into text.
type Transcriber struct {
	client       *resty.Client
	blobs        blob.Store
	pollInterval time.Duration
}

type recognizeConfig struct {
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	Encoding                   string `json:"encoding"`
	LanguageCode               string `json:"languageCode"`
	Model                      string `json:"model"`
	AudioChannelCount          int    `json:"audioChannelCount"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  struct {
		URI string `json:"uri"`
	} `json:"audio"`
}

type recognizeOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response struct {
		Results []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"results"`
	} `json:"response"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewTranscriber builds a transcriber against the speech endpoint.
// Staged audio lives in blobs for the duration of the job.
func NewTranscriber(endpoint, apiKey string, blobs blob.Store, pollInterval time.Duration) *Transcriber {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &Transcriber{client: client, blobs: blobs, pollInterval: pollInterval}
}

// Transcribe converts the video's audio track to text. Per-result
// transcripts are joined with newlines.
func (tr *Transcriber) Transcribe(ctx context.Context, data []byte) (string, error) {
	flac, err := extractAudio(ctx, data)
	if err != nil {
		return "", err
	}

	audioID := uuid.NewString() + ".flac"
	if _, err := tr.blobs.Put(ctx, audioID, audioID, bytes.NewReader(flac), nil); err != nil {
		return "", fmt.Errorf("extract: stage audio: %w", err)
	}
	defer tr.blobs.Delete(context.WithoutCancel(ctx), audioID) //nolint:errcheck // staging cleanup

	op, err := tr.startRecognition(ctx, tr.blobs.URI(audioID))
	if err != nil {
		return "", err
	}
	op, err = tr.waitForOperation(ctx, op)
	if err != nil {
		return "", err
	}

	var transcripts []string
	for _, result := range op.Response.Results {
		if len(result.Alternatives) > 0 {
			transcripts = append(transcripts, result.Alternatives[0].Transcript)
		}
	}
	return strings.Join(transcripts, "\n"), nil
}

// extractAudio shells out to ffmpeg to pull the audio track as FLAC.
func extractAudio(ctx context.Context, video []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "gebo-audio-*")
	if err != nil {
		return nil, fmt.Errorf("extract: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.mp4")
	out := filepath.Join(dir, "output.flac")
	if err := os.WriteFile(in, video, 0o600); err != nil {
		return nil, fmt.Errorf("extract: write video: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-i", in, "-vn", "-c:a", "flac", out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("extract: ffmpeg: %w: %s", err, stderr.String())
	}

	flac, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("extract: read audio: %w", err)
	}
	return flac, nil
}

func (tr *Transcriber) startRecognition(ctx context.Context, audioURI string) (*recognizeOperation, error) {
	req := recognizeRequest{
		Config: recognizeConfig{
			EnableAutomaticPunctuation: true,
			Encoding:                   "FLAC",
			LanguageCode:               "en-US",
			Model:                      "video",
			AudioChannelCount:          2,
			SampleRateHertz:            44100,
		},
	}
	req.Audio.URI = audioURI

	var op recognizeOperation
	resp, err := tr.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&op).
		SetError(&op).
		Post("/v1/speech:longrunningrecognize")
	if err != nil {
		return nil, fmt.Errorf("extract: start recognition: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("extract: start recognition: %s: %s", resp.Status(), op.Error.Message)
	}
	return &op, nil
}

func (tr *Transcriber) waitForOperation(ctx context.Context, op *recognizeOperation) (*recognizeOperation, error) {
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(tr.pollInterval):
		}

		var polled recognizeOperation
		resp, err := tr.client.R().
			SetContext(ctx).
			SetResult(&polled).
			SetError(&polled).
			Get("/v1/operations/" + op.Name)
		if err != nil {
			return nil, fmt.Errorf("extract: poll operation: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("extract: poll operation: %s: %s", resp.Status(), polled.Error.Message)
		}
		op = &polled
	}
	if op.Error.Message != "" {
		return nil, fmt.Errorf("extract: recognition failed: %s", op.Error.Message)
	}
	return op, nil
}
