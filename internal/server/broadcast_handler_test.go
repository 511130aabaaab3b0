package server

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadedFile(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("recipients_file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	return req.MultipartForm.File["recipients_file"][0]
}

func TestReadRecipientsFile(t *testing.T) {
	assert := assert.New(t)

	t.Run("one number per line", func(t *testing.T) {
		file := uploadedFile(t, "recipients.txt", "+254712345678\n+254712345679\n")
		numbers, err := readRecipientsFile(file)
		require.NoError(t, err)
		assert.Equal([]string{"+254712345678", "+254712345679"}, numbers)
	})

	t.Run("header line is skipped", func(t *testing.T) {
		file := uploadedFile(t, "recipients.csv", "phone_number\n+254712345678\n")
		numbers, err := readRecipientsFile(file)
		require.NoError(t, err)
		assert.Equal([]string{"+254712345678"}, numbers)
	})

	t.Run("comma separated lines are split", func(t *testing.T) {
		file := uploadedFile(t, "recipients.csv", "+254712345678,+254712345679\n+254712345680\n")
		numbers, err := readRecipientsFile(file)
		require.NoError(t, err)
		assert.Len(numbers, 3)
	})

	t.Run("blank lines are ignored", func(t *testing.T) {
		file := uploadedFile(t, "recipients.txt", "\n\n+254712345678\n\n")
		numbers, err := readRecipientsFile(file)
		require.NoError(t, err)
		assert.Equal([]string{"+254712345678"}, numbers)
	})
}

func TestSplitNonEmpty(t *testing.T) {
	assert := assert.New(t)

	assert.Nil(splitNonEmpty(""))
	assert.Equal([]string{"Jane", "42"}, splitNonEmpty("Jane, 42"))
	assert.Equal([]string{"a"}, splitNonEmpty("a,,"))
}
