package dom

import (
	"encoding/json"
	"fmt"
)

// TriggerButtonID is the id of the injected trigger button.
const TriggerButtonID = "kindle-bulk-downloader-trigger"

// triggerFlag is set on window once the trigger button has been clicked.
const triggerFlag = "__kindleBulkTriggered"

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// InstallTriggerScript returns a function expression that adds the fixed
// green trigger button to the top right of the page, unless it is already
// there. It evaluates to true when the button exists afterwards.
func InstallTriggerScript(label string) string {
	return fmt.Sprintf(`() => {
	if (document.getElementById(%[1]s)) return true;
	if (!document.body) return false;
	const button = document.createElement('button');
	button.id = %[1]s;
	button.innerText = %[2]s;
	Object.assign(button.style, {
		position: 'fixed', top: '20px', right: '20px', padding: '10px',
		fontSize: '16px', backgroundColor: '#4CAF50', color: 'white',
		border: 'none', borderRadius: '5px', cursor: 'pointer', zIndex: 9999,
	});
	button.addEventListener('click', () => {
		window[%[3]s] = true;
		button.disabled = true;
		button.style.backgroundColor = '#888';
	});
	document.body.appendChild(button);
	return true;
}`, quote(TriggerButtonID), quote(label), quote(triggerFlag))
}

// TriggeredScript evaluates to true once the trigger button was clicked.
func TriggeredScript() string {
	return fmt.Sprintf(`() => window[%s] === true`, quote(triggerFlag))
}

// AlertScript shows msg in a page alert without blocking the caller.
func AlertScript(msg string) string {
	return fmt.Sprintf(`() => { setTimeout(() => alert(%s), 0); return true; }`, quote(msg))
}

// Invoke turns a function expression into an expression calling it, for
// drivers that evaluate plain expressions.
func Invoke(fn string) string {
	return "(" + fn + ")()"
}
