package models

import "testing"

func TestLargeImageURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "small to large",
			in:   "https://img1.doubanio.com/view/status/small/public/p123.jpg",
			want: "https://img1.doubanio.com/view/status/large/public/p123.jpg",
		},
		{
			name: "medium to large",
			in:   "https://img1.doubanio.com/view/status/medium/public/p123.jpg",
			want: "https://img1.doubanio.com/view/status/large/public/p123.jpg",
		},
		{
			name: "already large",
			in:   "https://img1.doubanio.com/view/status/large/public/p123.jpg",
			want: "https://img1.doubanio.com/view/status/large/public/p123.jpg",
		},
		{
			name: "no size segment",
			in:   "https://img1.doubanio.com/pics/photo.jpg",
			want: "https://img1.doubanio.com/pics/photo.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LargeImageURL(tt.in)
			if got != tt.want {
				t.Errorf("LargeImageURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
			// Applying the substitution again must not change anything.
			if again := LargeImageURL(got); again != got {
				t.Errorf("LargeImageURL is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestCommentIsSystem(t *testing.T) {
	system := Comment{Content: "[该广播有 3 条回应，请访问原文查看]", Author: Author{Name: SystemAuthorName}}
	if !system.IsSystem() {
		t.Error("placeholder comment should be recognized as system")
	}

	regular := Comment{Content: "哈哈", Author: Author{Name: "某人", UID: "someone"}}
	if regular.IsSystem() {
		t.Error("regular comment should not be recognized as system")
	}
}
