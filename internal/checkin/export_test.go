package checkin

var WithClock = withClock
