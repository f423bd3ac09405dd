package structured_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/structured"
	"google.golang.org/genai"
)

type testReply struct {
	Summary string          `json:"summary" jsonschema:"Short summary"`
	Items   []testReplyItem `json:"items"`
}

type testReplyItem struct {
	Content    string   `json:"content"`
	Cluster    string   `json:"cluster,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func TestCodecDecode(t *testing.T) {
	codec, err := structured.NewCodec[testReply]()
	gt.NoError(t, err)

	t.Run("plain object", func(t *testing.T) {
		out, err := codec.Decode(`{"summary":"ok","items":[{"content":"c1","confidence":95}]}`)
		gt.NoError(t, err)
		gt.Equal(t, out.Summary, "ok")
		gt.A(t, out.Items).Length(1)
		gt.Equal(t, out.Items[0].Content, "c1")
		gt.V(t, out.Items[0].Confidence).NotNil()
		gt.Equal(t, *out.Items[0].Confidence, 95.0)
	})

	t.Run("fenced object with prose", func(t *testing.T) {
		out, err := codec.Decode("```json\n{\"summary\":\"s\",\"items\":[]}\n```")
		gt.NoError(t, err)
		gt.Equal(t, out.Summary, "s")

		out, err = codec.Decode("Here you go: {\"summary\":\"p\",\"items\":[]} Hope it helps.")
		gt.NoError(t, err)
		gt.Equal(t, out.Summary, "p")
	})

	t.Run("extra keys are ignored", func(t *testing.T) {
		out, err := codec.Decode(`{"summary":"s","items":[{"content":"c","note":"x"}],"debug":true}`)
		gt.NoError(t, err)
		gt.A(t, out.Items).Length(1)
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := codec.Decode(`{"summary":"s"}`)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, structured.ErrSchemaInvalid))
	})

	t.Run("wrong field type", func(t *testing.T) {
		_, err := codec.Decode(`{"summary":"s","items":"none"}`)
		gt.Error(t, err)
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := codec.Decode("I could not find anything.")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, structured.ErrNoJSON))
	})

	t.Run("broken JSON", func(t *testing.T) {
		_, err := codec.Decode(`{"summary": "s", "items": [}`)
		gt.Error(t, err)
	})
}

func TestCodecGenaiSchema(t *testing.T) {
	codec := structured.MustCodec[testReply]()
	schema := codec.GenaiSchema()

	gt.V(t, schema).NotNil()
	gt.Equal(t, schema.Type, genai.TypeObject)
	gt.Equal(t, schema.Properties["summary"].Type, genai.TypeString)
	gt.Equal(t, schema.Properties["summary"].Description, "Short summary")
	gt.Equal(t, schema.Properties["items"].Type, genai.TypeArray)
	gt.Equal(t, schema.Properties["items"].Items.Properties["confidence"].Type, genai.TypeNumber)
	gt.True(t, slices.Contains(schema.Required, "items"))

	gt.S(t, codec.Describe()).Contains("summary")
}

func TestExtract(t *testing.T) {
	raw, err := structured.Extract("```\n{\"a\":{\"b\":1}}\n```")
	gt.NoError(t, err)
	gt.Equal(t, raw, `{"a":{"b":1}}`)

	_, err = structured.Extract("} nothing {")
	gt.Error(t, err)
}
