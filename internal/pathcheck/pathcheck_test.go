package pathcheck

import "testing"

func TestIsCriticalPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"", true},
		{"/etc", true},
		{"/etc/", true},
		{"/usr", true},
		{"/var", true},
		{"C:\\Windows", true},
		{"c:/windows/system32", true},
		{"C:\\Windows\\System32", true},
		{"C:/Program Files", true},
		{"System32", true},
		{".git", true},
		{"project/.git", true},
		{"/home/dev/repo/.git", true},

		{"/tmp", false},
		{"/tmp/build", false},
		{"./src", false},
		{"node_modules", false},
		{"/etc-backup", false},
		{"my.gitignore", false},
		{"repo/.github", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsCriticalPath(tt.path); got != tt.want {
				t.Errorf("IsCriticalPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsSensitivePath(t *testing.T) {
	t.Setenv("HOME", "/home/dev")

	tests := []struct {
		path string
		want bool
	}{
		{"~/.ssh/id_rsa", true},
		{"~/.ssh/authorized_keys", true},
		{"~/.bashrc", true},
		{"~/.zshrc", true},
		{"~/.profile", true},
		{"~/.gitconfig", true},
		{"/home/dev/.bashrc", true},
		{"/home/dev/.ssh/config", true},

		{"~/.config/app.toml", false},
		{"/home/dev/notes.txt", false},
		{"/etc/passwd", false},
		{"bashrc", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSensitivePath(tt.path); got != tt.want {
				t.Errorf("IsSensitivePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
