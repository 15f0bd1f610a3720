package message

import "testing"

func TestExtractFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Fence
	}{
		{
			name:     "open python block",
			input:    "```python\nprint(1)\n",
			expected: Fence{InCodeBlock: true, Language: "python", Code: "print(1)"},
		},
		{
			name:     "closed block is prose again",
			input:    "```python\nprint(1)\n```\nDone.",
			expected: Fence{InCodeBlock: false},
		},
		{
			name:     "prose before the fence",
			input:    "Let me check that.\n```shell\nls -la\n",
			expected: Fence{InCodeBlock: true, Language: "shell", Code: "ls -la"},
		},
		{
			name:     "bare fence has no language yet",
			input:    "```",
			expected: Fence{InCodeBlock: true},
		},
		{
			name:     "empty language line defaults to python",
			input:    "```\nprint(1)\n",
			expected: Fence{InCodeBlock: true, Language: "python", Code: "print(1)"},
		},
		{
			name:     "pip install reclassifies as shell",
			input:    "```\npip install foo\n",
			expected: Fence{InCodeBlock: true, Language: "shell", Code: "pip install foo"},
		},
		{
			name:     "bash normalizes to shell",
			input:    "```bash\necho hi\n",
			expected: Fence{InCodeBlock: true, Language: "shell", Code: "echo hi"},
		},
		{
			name:     "second block after a closed one",
			input:    "```python\nprint(1)\n```\nNow the shell:\n```shell\npwd\n",
			expected: Fence{InCodeBlock: true, Language: "shell", Code: "pwd"},
		},
		{
			name:     "no fences at all",
			input:    "Just some prose.",
			expected: Fence{InCodeBlock: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFence(tt.input)
			if got != tt.expected {
				t.Errorf("got %+v, want %+v", got, tt.expected)
			}
		})
	}
}
