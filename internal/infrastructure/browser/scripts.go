package browser

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/autofill-core/internal/action"
)

// Page interactions run as injected scripts that resolve the element
// with document.evaluate, so every locator is an XPath. Arguments are
// passed as one JSON object literal and never spliced into source.
// Scripts throw on failure; chromedp surfaces the exception as an error.

const helpersJS = `function findElement(xpath) {
	const node = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!node) throw new Error("element not found: " + xpath);
	return node;
}
function fire(el, names) {
	const opts = {bubbles: true, cancelable: true, composed: true};
	for (const name of names) el.dispatchEvent(new Event(name, opts));
}
function triggerJQuery(el, name) {
	if (window.jQuery && window.jQuery(el).length) window.jQuery(el).trigger(name);
}
function isToggle(el) {
	return el instanceof HTMLInputElement && (el.type === "checkbox" || el.type === "radio");
}`

const clickJS = `const el = findElement(a.xpath);
el.click();
return true;`

// typeJS writes through the prototype's value setter so frameworks that
// track the native value (React) observe the change.
const typeJS = `const el = findElement(a.xpath);
if (a.basic) {
	el.focus();
	if (isToggle(el)) {
		el.checked = a.value === "1";
		fire(el, ["change"]);
	} else if ("value" in el) {
		el.value = a.value;
		fire(el, el instanceof HTMLSelectElement ? ["change"] : ["input", "change"]);
	} else {
		throw new Error("element does not accept input: " + el.tagName);
	}
	return true;
}
const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype
	: el instanceof HTMLInputElement ? HTMLInputElement.prototype : null;
const desc = proto && Object.getOwnPropertyDescriptor(proto, "value");
if (desc && desc.set) {
	desc.set.call(el, a.value);
} else if ("value" in el) {
	el.value = a.value;
} else {
	throw new Error("element does not accept input: " + el.tagName);
}
fire(el, ["input", "change", "blur"]);
triggerJQuery(el, "change");
return true;`

const checkJS = `const el = findElement(a.xpath);
if (!isToggle(el)) throw new Error("element is not a checkbox or radio: " + el.tagName);
el.checked = a.checked;
if (a.basic) {
	fire(el, ["change"]);
} else {
	fire(el, ["input", "change"]);
	triggerJQuery(el, "change");
}
return el.checked;`

const selectJS = `const el = findElement(a.xpath);
if (!(el instanceof HTMLSelectElement)) {
	if (a.widget === 2) throw new Error("custom select widgets are not supported: " + el.tagName);
	if (a.widget === 3) throw new Error("element behind jQuery widget is not a select: " + el.tagName);
	throw new Error("element is not a select: " + el.tagName);
}
const options = Array.from(el.options);
let option;
switch (a.by) {
case "value": option = options.find(o => o.value === a.value); break;
case "index": option = options[a.index]; break;
case "text": option = options.find(o => o.text.includes(a.value)); break;
case "text_exact": option = options.find(o => o.text === a.value); break;
}
if (!option) throw new Error("no matching option for " + a.by + " " + JSON.stringify(a.value));
if (a.multiple) {
	option.selected = true;
} else {
	el.value = option.value;
}
fire(el, ["change", "input"]);
if (a.widget === 3) triggerJQuery(el, "change");
return option.text;`

const valueJS = `const el = findElement(a.xpath);
if (isToggle(el)) return el.checked ? "1" : "0";
if (el instanceof HTMLInputElement || el instanceof HTMLTextAreaElement || el instanceof HTMLSelectElement) return el.value;
return (el.textContent || "").trim();`

type elementArgs struct {
	XPath string `json:"xpath"`
	Basic bool   `json:"basic,omitempty"`
}

type typeArgs struct {
	XPath string `json:"xpath"`
	Value string `json:"value"`
	Basic bool   `json:"basic,omitempty"`
}

type checkArgs struct {
	XPath   string `json:"xpath"`
	Checked bool   `json:"checked"`
	Basic   bool   `json:"basic,omitempty"`
}

type selectArgs struct {
	XPath    string          `json:"xpath"`
	By       action.SelectBy `json:"by"`
	Value    string          `json:"value"`
	Index    int             `json:"index"`
	Multiple bool            `json:"multiple,omitempty"`
	Widget   int             `json:"widget"`
}

// buildScript wraps body in an immediately invoked function receiving
// args as "a".
func buildScript(body string, args any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encoding script arguments: %w", err)
	}
	return "(function(a) {\n" + helpersJS + "\n" + body + "\n})(" + string(raw) + ")", nil
}

func clickScript(xpath string) (string, error) {
	return buildScript(clickJS, elementArgs{XPath: xpath})
}

func typeScript(xpath, value string, mode action.InputMode) (string, error) {
	return buildScript(typeJS, typeArgs{XPath: xpath, Value: value, Basic: mode.Basic()})
}

func checkScript(xpath string, checked bool, mode action.InputMode) (string, error) {
	return buildScript(checkJS, checkArgs{XPath: xpath, Checked: checked, Basic: mode.Basic()})
}

func selectScript(xpath string, opt action.SelectOption) (string, error) {
	return buildScript(selectJS, selectArgs{
		XPath:    xpath,
		By:       opt.By,
		Value:    opt.Value,
		Index:    opt.Index,
		Multiple: opt.Multiple,
		Widget:   int(opt.Widget),
	})
}

func valueScript(xpath string) (string, error) {
	return buildScript(valueJS, elementArgs{XPath: xpath})
}
