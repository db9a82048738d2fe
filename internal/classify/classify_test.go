package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySQLInjection(t *testing.T) {
	assert.Equal(t, "SQL Injection", Classify("db.execute(userId)", "req.body.id"))
}

func TestClassifyXSSTakesPrecedenceOverLaterPatterns(t *testing.T) {
	// "res.send" matches both the XSS group (directly) and could also
	// read like a redirect; XSS is listed first in spec §4.I's order and
	// must win.
	assert.Equal(t, "Cross-Site Scripting (XSS)", Classify("res.send(payload)", "req.query.name"))
}

func TestClassifyCommandInjection(t *testing.T) {
	assert.Equal(t, "Command Injection", Classify("subprocess.run(cmd)", "req.body.cmd"))
}

func TestClassifyFallsBackToUnvalidatedInputForRequestShapedSource(t *testing.T) {
	assert.Equal(t, "Unvalidated Input", Classify("someInternalSink(x)", "req.headers.x-forwarded-for"))
}

func TestClassifyFallsBackToDataExposureWithNoRequestShapedSource(t *testing.T) {
	assert.Equal(t, "Data Exposure", Classify("someInternalSink(x)", "localVariable"))
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, "SQL Injection", Classify("DB.EXECUTE(x)", ""))
}
