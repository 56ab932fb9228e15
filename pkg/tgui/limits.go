package tgui

// MaxMessageLen is Telegram's sendMessage text limit, counted in characters.
const MaxMessageLen = 4096
